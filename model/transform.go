package model

import "math"

const (
	MinScale = 0.1
	MaxScale = 2.0

	// ForegroundHeightRatio 前景基准高度占画布高度的比例
	ForegroundHeightRatio = 0.7
)

// CompositeTransform 前景在画布上的放置：锚点为前景几何中心
type CompositeTransform struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Scale           float64 `json:"scale"`
	RotationDegrees float64 `json:"rotation"`
}

// WithScale 返回缩放被限制在 [MinScale, MaxScale] 内的副本
func (t CompositeTransform) WithScale(scale float64) CompositeTransform {
	if math.IsNaN(scale) {
		return t
	}
	t.Scale = math.Min(MaxScale, math.Max(MinScale, scale))
	return t
}

// WithRotation 返回旋转角度取模 360 后的副本
func (t CompositeTransform) WithRotation(degrees float64) CompositeTransform {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return t
	}
	t.RotationDegrees = NormalizeDegrees(degrees)
	return t
}

// NormalizeDegrees 将角度归一化到 [0, 360)
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// Radians 旋转角度的弧度值
func (t CompositeTransform) Radians() float64 {
	return t.RotationDegrees * math.Pi / 180
}
