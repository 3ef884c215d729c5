package model

import "fmt"

// Color RGB 三元组，每通道 0-255
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ChromaGreen 纯绿色抠像键
var ChromaGreen = Color{R: 0, G: 255, B: 0}

// ColorDistance 计算两个颜色的欧氏距离平方
func ColorDistance(a, b Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// KeyingParameters 抠像参数，Tolerance 与距离平方比较前先平方
type KeyingParameters struct {
	KeyColor  Color   `json:"key_color"`
	Tolerance float64 `json:"tolerance"`
}

// DefaultTolerance 默认抠像容差
const DefaultTolerance = 60

// DefaultKeyingParameters 默认参数：纯绿色，容差 60
func DefaultKeyingParameters() KeyingParameters {
	return KeyingParameters{KeyColor: ChromaGreen, Tolerance: DefaultTolerance}
}
