package model

// Size 画布尺寸
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BBox 边界框
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center 边界框中心
func (b BBox) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}

// SessionView 会话状态快照
type SessionView struct {
	ID             string              `json:"id"`
	Stage          PipelineStage       `json:"stage"`
	Epoch          uint64              `json:"epoch"`
	HasPhoto       bool                `json:"has_photo"`
	CustomPrompt   string              `json:"custom_prompt"`
	Mission        Mission             `json:"mission"`
	Background     string              `json:"background"`
	HasHero        bool                `json:"has_hero"`
	HasTransparent bool                `json:"has_transparent"`
	Keying         *KeyingParameters   `json:"keying,omitempty"`
	Error          string              `json:"error,omitempty"`
	Transform      *CompositeTransform `json:"transform,omitempty"`
	Surface        *Size               `json:"surface,omitempty"`
	Foreground     *BBox               `json:"foreground,omitempty"`
	Dragging       bool                `json:"dragging"`
}

// MissionView 任务列表项
type MissionView struct {
	Tag   Mission `json:"tag"`
	Label string  `json:"label"`
}

// KeySuggestion 建议的抠像颜色
type KeySuggestion struct {
	Color Color  `json:"color"`
	Hex   string `json:"hex"`
}

// Response 通用响应
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
