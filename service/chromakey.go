package service

import (
	"fmt"
	"image"
	"math"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

// ChromaKeyRemover 将接近键色的像素设为完全透明
type ChromaKeyRemover struct{}

func NewChromaKeyRemover() *ChromaKeyRemover {
	return &ChromaKeyRemover{}
}

// Remove 返回新图像：与键色距离平方小于 tolerance² 的像素 alpha 置 0，其余像素保持不变。
// 输入图像不会被修改。
func (r *ChromaKeyRemover) Remove(img image.Image, params model.KeyingParameters) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: no pixels to key", ErrDecode)
	}
	if params.Tolerance < 0 || math.IsNaN(params.Tolerance) {
		return nil, fmt.Errorf("%w: tolerance must be non-negative", ErrRemoval)
	}

	out := toNRGBA(img)
	toleranceSq := params.Tolerance * params.Tolerance
	key := params.KeyColor

	for i := 0; i < len(out.Pix); i += 4 {
		px := model.Color{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2]}
		if float64(model.ColorDistance(px, key)) < toleranceSq {
			out.Pix[i+3] = 0
		}
	}

	return out, nil
}

// SampleColor 读取指定像素的 RGB
func SampleColor(img image.Image, x, y int) (model.Color, error) {
	if img == nil {
		return model.Color{}, fmt.Errorf("%w: no image to sample", ErrValidation)
	}
	b := img.Bounds()
	p := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !p.In(b) {
		return model.Color{}, fmt.Errorf("%w: point (%d,%d) outside %dx%d image", ErrValidation, x, y, b.Dx(), b.Dy())
	}
	if n, ok := img.(*image.NRGBA); ok {
		i := n.PixOffset(p.X, p.Y)
		return model.Color{R: n.Pix[i], G: n.Pix[i+1], B: n.Pix[i+2]}, nil
	}
	c := toNRGBA(img)
	i := c.PixOffset(x, y)
	return model.Color{R: c.Pix[i], G: c.Pix[i+1], B: c.Pix[i+2]}, nil
}

// MapDisplayPoint 将显示坐标换算为图像像素坐标
func MapDisplayPoint(x, y, displayWidth, displayHeight, imageWidth, imageHeight int) (int, int) {
	if displayWidth <= 0 || displayHeight <= 0 {
		return x, y
	}
	px := int(math.Floor(float64(x) * float64(imageWidth) / float64(displayWidth)))
	py := int(math.Floor(float64(y) * float64(imageHeight) / float64(displayHeight)))
	return px, py
}
