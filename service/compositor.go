package service

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

// Compositor 负责将透明前景叠加到背景上。
// 背景与前景只读借用；变换与拖拽状态归合成器所有。
type Compositor struct {
	layoutWidth  int
	initialScale float64

	background image.Image
	foreground image.Image
	size       model.Size

	transform model.CompositeTransform
	drag      DragState

	surface *image.RGBA
}

func NewCompositor(layoutWidth int, initialScale float64) *Compositor {
	if initialScale <= 0 {
		initialScale = 0.8
	}
	return &Compositor{
		layoutWidth:  layoutWidth,
		initialScale: initialScale,
		transform:    model.CompositeTransform{Scale: initialScale},
	}
}

// Clone 浅拷贝：图层为只读借用，画布每次渲染都会重新分配，可安全共享
func (c *Compositor) Clone() *Compositor {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// SetForeground 设置前景图层（透明英雄图）
func (c *Compositor) SetForeground(img image.Image) {
	c.foreground = img
	c.rerender()
}

// SetBackground 设置背景图层。首次加载时按背景宽高比确定画布尺寸并将前景居中。
func (c *Compositor) SetBackground(img image.Image) {
	c.background = img
	if img != nil && c.size.Width == 0 {
		c.size = SurfaceSize(c.layoutWidth, img.Bounds())
		c.transform = model.CompositeTransform{
			X:     float64(c.size.Width) / 2,
			Y:     float64(c.size.Height) / 2,
			Scale: c.initialScale,
		}
	}
	c.rerender()
}

// SurfaceSize 宽度取布局宽度，高度 = 宽度 / 背景宽高比
func SurfaceSize(layoutWidth int, bg image.Rectangle) model.Size {
	if layoutWidth <= 0 {
		layoutWidth = bg.Dx()
	}
	aspect := float64(bg.Dx()) / float64(bg.Dy())
	h := int(math.Round(float64(layoutWidth) / aspect))
	if h < 1 {
		h = 1
	}
	return model.Size{Width: layoutWidth, Height: h}
}

// Ready 两个图层均已解码
func (c *Compositor) Ready() bool {
	return c.background != nil && c.foreground != nil
}

func (c *Compositor) Size() model.Size                    { return c.size }
func (c *Compositor) Transform() model.CompositeTransform { return c.transform }
func (c *Compositor) Dragging() bool                      { return c.drag.Active }

// SetScale 缩放立即生效，与拖拽状态无关
func (c *Compositor) SetScale(scale float64) {
	c.transform = c.transform.WithScale(scale)
	c.rerender()
}

// SetRotation 旋转立即生效，与拖拽状态无关
func (c *Compositor) SetRotation(degrees float64) {
	c.transform = c.transform.WithRotation(degrees)
	c.rerender()
}

// HandlePointer 处理指针事件，变换改变时重绘
func (c *Compositor) HandlePointer(ev PointerEvent) {
	before := c.transform
	c.drag, c.transform = ApplyPointer(c.drag, c.transform, ev, c.size)
	if c.transform != before {
		c.rerender()
	}
}

// Surface 最近一次渲染结果；未就绪时为 nil
func (c *Compositor) Surface() *image.RGBA {
	return c.surface
}

// Export 将当前画布编码为无损图像
func (c *Compositor) Export(format ExportFormat) ([]byte, error) {
	if c.surface == nil {
		return nil, fmt.Errorf("%w: composition surface not rendered", ErrExportUnavailable)
	}
	return format.Encode(c.surface)
}

// ForegroundBounds 前景旋转后在画布上的包围盒
func (c *Compositor) ForegroundBounds() (model.BBox, bool) {
	if !c.Ready() || c.size.Width == 0 {
		return model.BBox{}, false
	}
	return ForegroundBounds(c.foreground.Bounds(), c.transform, c.size), true
}

func (c *Compositor) rerender() {
	if !c.Ready() || c.size.Width == 0 {
		return
	}
	c.surface = Render(c.background, c.foreground, c.transform, c.size)
}

// Render 每次从清空的画布开始绘制：背景拉伸铺满，前景按 平移 -> 旋转 -> 居中 的顺序绘制，
// 旋转因此以前景自身中心为轴。任一图层缺失时返回 nil。
func Render(background, foreground image.Image, t model.CompositeTransform, size model.Size) *image.RGBA {
	if background == nil || foreground == nil || size.Width <= 0 || size.Height <= 0 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), background, background.Bounds(), draw.Over, nil)

	fb := foreground.Bounds()
	if fb.Empty() || t.Scale <= 0 {
		return dst
	}
	draw.BiLinear.Transform(dst, foregroundMatrix(fb, t, size), foreground, fb, draw.Over, nil)
	return dst
}

// foregroundDrawSize 高度 = 画布高度 * 0.7 * scale，宽度按前景原始宽高比
func foregroundDrawSize(fb image.Rectangle, t model.CompositeTransform, size model.Size) (float64, float64) {
	h := float64(size.Height) * model.ForegroundHeightRatio * t.Scale
	w := h * float64(fb.Dx()) / float64(fb.Dy())
	return w, h
}

// foregroundMatrix 源像素坐标到画布坐标的仿射矩阵
func foregroundMatrix(fb image.Rectangle, t model.CompositeTransform, size model.Size) f64.Aff3 {
	w, h := foregroundDrawSize(fb, t, size)
	sx := w / float64(fb.Dx())
	sy := h / float64(fb.Dy())
	sin, cos := math.Sincos(t.Radians())
	ox := -float64(fb.Min.X)*sx - w/2
	oy := -float64(fb.Min.Y)*sy - h/2

	return f64.Aff3{
		cos * sx, -sin * sy, t.X + cos*ox - sin*oy,
		sin * sx, cos * sy, t.Y + sin*ox + cos*oy,
	}
}

// ForegroundBounds 计算前景四角经变换后的轴对齐包围盒
func ForegroundBounds(fb image.Rectangle, t model.CompositeTransform, size model.Size) model.BBox {
	m := foregroundMatrix(fb, t, size)
	corners := [4][2]float64{
		{float64(fb.Min.X), float64(fb.Min.Y)},
		{float64(fb.Max.X), float64(fb.Min.Y)},
		{float64(fb.Min.X), float64(fb.Max.Y)},
		{float64(fb.Max.X), float64(fb.Max.Y)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		x := m[0]*p[0] + m[1]*p[1] + m[2]
		y := m[3]*p[0] + m[4]*p[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	return model.BBox{
		X:      x0,
		Y:      y0,
		Width:  int(math.Ceil(maxX)) - x0,
		Height: int(math.Ceil(maxY)) - y0,
	}
}
