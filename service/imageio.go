package service

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// tga 以空 magic 注册到 image 包，会遮蔽其后注册的格式，
// 因此不走 image.Decode，按文件头显式分发，TGA 作为兜底
type imageDecoder struct {
	format string
	magic  string
	decode func(io.Reader) (image.Image, error)
}

var imageDecoders = []imageDecoder{
	{"png", "\x89PNG\r\n\x1a\n", png.Decode},
	{"jpeg", "\xff\xd8", jpeg.Decode},
	{"gif", "GIF8", gif.Decode},
	{"bmp", "BM", bmp.Decode},
	{"webp", "RIFF????WEBP", webp.Decode},
}

func matchMagic(magic string, data []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i := 0; i < len(magic); i++ {
		if magic[i] != '?' && magic[i] != data[i] {
			return false
		}
	}
	return true
}

// sniffDecoder 按文件头选择解码器，无匹配时视为 TGA
func sniffDecoder(data []byte) imageDecoder {
	for _, d := range imageDecoders {
		if matchMagic(d.magic, data) {
			return d
		}
	}
	return imageDecoder{format: "tga", decode: tga.Decode}
}

// DecodeImage 将编码图像解码为原点在 (0,0) 的 NRGBA 位图
func DecodeImage(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecode)
	}
	dec := sniffDecoder(data)
	img, err := dec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, dec.format, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecode, dec.format)
	}
	return toNRGBA(img), nil
}

// toNRGBA 复制为新的 NRGBA，调用方可安全持有原图
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()*4], src.Pix[si:si+b.Dx()*4])
		}
		return out
	}
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// EncodePNG 无损编码为 PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFormat 导出编码格式
type ExportFormat string

const (
	FormatPNG  ExportFormat = "png"
	FormatWebP ExportFormat = "webp"
)

// ParseExportFormat 未知格式回退为 PNG
func ParseExportFormat(s string) ExportFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatWebP)) {
		return FormatWebP
	}
	return FormatPNG
}

func (f ExportFormat) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Encode 以无损格式编码图像
func (f ExportFormat) Encode(img image.Image) ([]byte, error) {
	if f != FormatWebP {
		return EncodePNG(img)
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("webp encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}
