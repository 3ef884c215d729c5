package service

import (
	"fmt"
	"image"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

// ParseKeyColor 解析 "#RRGGBB" 形式的键色
func ParseKeyColor(hex string) (model.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return model.Color{}, fmt.Errorf("invalid key color %q: %w", hex, err)
	}
	r, g, b := c.Clamped().RGB255()
	return model.Color{R: r, G: g, B: b}, nil
}

// HexColor 以 "#rrggbb" 表示颜色
func HexColor(c model.Color) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

// SuggestKeyColor 返回图像的主色，作为背景键色的建议值
func SuggestKeyColor(img image.Image) (model.KeySuggestion, error) {
	if img == nil || img.Bounds().Empty() {
		return model.KeySuggestion{}, fmt.Errorf("%w: no image to analyze", ErrValidation)
	}
	dc := dominantcolor.Find(img)
	c := model.Color{R: dc.R, G: dc.G, B: dc.B}
	return model.KeySuggestion{Color: c, Hex: HexColor(c)}, nil
}
