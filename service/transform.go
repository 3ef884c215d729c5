package service

import "github.com/dlrandrade/Multiverso-do-Impacto/model"

// PointerKind 指针事件类型
type PointerKind string

const (
	PointerDown  PointerKind = "down"
	PointerMove  PointerKind = "move"
	PointerUp    PointerKind = "up"
	PointerLeave PointerKind = "leave"
)

// PointerEvent 画布坐标系下的指针事件
type PointerEvent struct {
	Kind PointerKind `json:"type"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// DragState 拖拽状态；Active 为 false 时其余字段无意义
type DragState struct {
	Active  bool
	StartX  float64
	StartY  float64
	OriginX float64
	OriginY float64
}

// ApplyPointer 纯函数：根据指针事件推进拖拽状态并返回新的变换。
// 拖拽只平移，不影响缩放与旋转。按下仅在画布范围内生效。
func ApplyPointer(drag DragState, t model.CompositeTransform, ev PointerEvent, surface model.Size) (DragState, model.CompositeTransform) {
	switch ev.Kind {
	case PointerDown:
		if !insideSurface(ev.X, ev.Y, surface) {
			return drag, t
		}
		return DragState{
			Active:  true,
			StartX:  ev.X,
			StartY:  ev.Y,
			OriginX: t.X,
			OriginY: t.Y,
		}, t
	case PointerMove:
		if !drag.Active {
			return drag, t
		}
		t.X = drag.OriginX + (ev.X - drag.StartX)
		t.Y = drag.OriginY + (ev.Y - drag.StartY)
		return drag, t
	case PointerUp, PointerLeave:
		return DragState{}, t
	}
	return drag, t
}

func insideSurface(x, y float64, s model.Size) bool {
	return x >= 0 && y >= 0 && x < float64(s.Width) && y < float64(s.Height)
}
