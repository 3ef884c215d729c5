package model

import "fmt"

// PipelineStage 流水线阶段，同一时刻只有一个处于激活状态
type PipelineStage int

const (
	StageIdle PipelineStage = iota
	StageImageSelected
	StageGeneratingHero
	StageBackgroundRemoval
	StageRemovingBackground
	StagePreviewTransparent
	StageComposing
	StageError
)

func (s PipelineStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageImageSelected:
		return "image_selected"
	case StageGeneratingHero:
		return "generating_hero"
	case StageBackgroundRemoval:
		return "background_removal"
	case StageRemovingBackground:
		return "removing_background"
	case StagePreviewTransparent:
		return "preview_transparent"
	case StageComposing:
		return "composing"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText 以名称序列化阶段
func (s PipelineStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PipelineStage) UnmarshalText(text []byte) error {
	for st := StageIdle; st <= StageError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline stage %q", text)
}

// IsInitial 是否处于可编辑输入的初始界面
func (s PipelineStage) IsInitial() bool {
	return s == StageIdle || s == StageImageSelected
}
