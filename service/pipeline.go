package service

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

// Artifacts 各阶段累积的产物，直到完全重置前一直保留
type Artifacts struct {
	Photo              []byte
	PhotoType          string
	CustomPrompt       string
	Mission            model.Mission
	Background         BackgroundSource
	HeroWithBackground *image.NRGBA
	TransparentHero    *image.NRGBA
	Keying             *model.KeyingParameters
	LastError          string
}

// State 流水线状态。Composition 仅在 Composing 阶段存在。
type State struct {
	Stage       model.PipelineStage
	Epoch       uint64
	Artifacts   Artifacts
	Composition *Compositor
}

// Event 驱动状态机的输入
type Event interface {
	eventName() string
}

type (
	SelectPhoto struct {
		Data        []byte
		ContentType string
	}
	SetPrompt        struct{ Text string }
	SelectMission    struct{ Mission model.Mission }
	SelectBackground struct{ Source BackgroundSource }
	Generate         struct{}

	GenerationFinished struct {
		Epoch uint64
		Image *image.NRGBA
		Err   error
	}

	// PickKeyColor 直接指定键色；Tolerance 为 nil 时使用默认容差
	PickKeyColor struct {
		Color     model.Color
		Tolerance *float64
	}

	// PickKeyPoint 在显示中的英雄图上取色；显示尺寸为 0 时坐标即像素坐标
	PickKeyPoint struct {
		X, Y          int
		DisplayWidth  int
		DisplayHeight int
		Tolerance     *float64
	}

	RemovalFinished struct {
		Epoch  uint64
		Params model.KeyingParameters
		Image  *image.NRGBA
		Err    error
	}

	Confirm struct{}

	BackgroundLoaded struct {
		Epoch uint64
		Image image.Image
		Err   error
	}

	SetTransform struct {
		Scale    *float64
		Rotation *float64
	}

	Pointer struct{ Event PointerEvent }

	Reset struct{}
)

func (SelectPhoto) eventName() string        { return "select_photo" }
func (SetPrompt) eventName() string          { return "set_prompt" }
func (SelectMission) eventName() string      { return "select_mission" }
func (SelectBackground) eventName() string   { return "select_background" }
func (Generate) eventName() string           { return "generate" }
func (GenerationFinished) eventName() string { return "generation_finished" }
func (PickKeyColor) eventName() string       { return "pick_key_color" }
func (PickKeyPoint) eventName() string       { return "pick_key_point" }
func (RemovalFinished) eventName() string    { return "removal_finished" }
func (Confirm) eventName() string            { return "confirm" }
func (BackgroundLoaded) eventName() string   { return "background_loaded" }
func (SetTransform) eventName() string       { return "set_transform" }
func (Pointer) eventName() string            { return "pointer" }
func (Reset) eventName() string              { return "reset" }

// Command 状态转换发起的异步工作，完成后以带 Epoch 的事件回送
type Command interface {
	commandName() string
}

type (
	StartGeneration struct {
		Epoch   uint64
		Request GenerationRequest
	}
	StartRemoval struct {
		Epoch  uint64
		Image  *image.NRGBA
		Params model.KeyingParameters
	}
	LoadBackground struct {
		Epoch  uint64
		Source BackgroundSource
	}
)

func (StartGeneration) commandName() string { return "generate" }
func (StartRemoval) commandName() string    { return "remove_background" }
func (LoadBackground) commandName() string  { return "load_background" }

// Defaults 重置后的初始值
type Defaults struct {
	Background   BackgroundSource
	Keying       model.KeyingParameters
	SurfaceWidth int
	InitialScale float64
}

// Machine 流水线状态机。转换单向推进，唯一的回退是完全重置。
type Machine struct {
	defaults Defaults
}

func NewMachine(defaults Defaults) *Machine {
	return &Machine{defaults: defaults}
}

// Initial 空闲状态，背景为系统默认值
func (m *Machine) Initial(epoch uint64) State {
	return State{
		Stage: model.StageIdle,
		Epoch: epoch,
		Artifacts: Artifacts{
			Mission:    model.MissionNone,
			Background: m.defaults.Background,
		},
	}
}

// Transition 对 (状态, 事件) 求新状态与需要执行的异步命令。
// 返回错误时新状态仍然有效（例如校验错误会记录消息但阶段不变）。
func (m *Machine) Transition(s State, ev Event) (State, Command, error) {
	if _, ok := ev.(Reset); ok {
		return m.Initial(s.Epoch + 1), nil, nil
	}

	switch ev := ev.(type) {
	case SelectPhoto, SetPrompt, SelectMission, SelectBackground:
		if !s.Stage.IsInitial() {
			return s, nil, invalidEvent(s, ev)
		}
		return m.applyInput(s, ev)

	case Generate:
		if !s.Stage.IsInitial() {
			return s, nil, invalidEvent(s, ev)
		}
		if msg := validateGenerate(s.Artifacts); msg != "" {
			s.Artifacts.LastError = msg
			return s, nil, fmt.Errorf("%w: %s", ErrValidation, msg)
		}
		s.Stage = model.StageGeneratingHero
		s.Artifacts.LastError = ""
		return s, StartGeneration{
			Epoch: s.Epoch,
			Request: GenerationRequest{
				Photo:        s.Artifacts.Photo,
				PhotoType:    s.Artifacts.PhotoType,
				CustomPrompt: s.Artifacts.CustomPrompt,
				Mission:      s.Artifacts.Mission,
			},
		}, nil

	case GenerationFinished:
		if ev.Epoch != s.Epoch || s.Stage != model.StageGeneratingHero {
			return s, nil, ErrStaleResult
		}
		if ev.Err != nil || ev.Image == nil {
			return failed(s, ev.Err, ErrGeneration, "Ocorreu um erro desconhecido ao gerar a imagem."), nil, nil
		}
		s.Artifacts.HeroWithBackground = ev.Image
		s.Stage = model.StageBackgroundRemoval
		return s, nil, nil

	case PickKeyPoint:
		if s.Stage != model.StageBackgroundRemoval {
			return s, nil, invalidEvent(s, ev)
		}
		hero := s.Artifacts.HeroWithBackground
		b := hero.Bounds()
		x, y := MapDisplayPoint(ev.X, ev.Y, ev.DisplayWidth, ev.DisplayHeight, b.Dx(), b.Dy())
		c, err := SampleColor(hero, x, y)
		if err != nil {
			return s, nil, err
		}
		return m.Transition(s, PickKeyColor{Color: c, Tolerance: ev.Tolerance})

	case PickKeyColor:
		if s.Stage != model.StageBackgroundRemoval {
			return s, nil, invalidEvent(s, ev)
		}
		params := m.defaults.Keying
		params.KeyColor = ev.Color
		if ev.Tolerance != nil {
			if *ev.Tolerance < 0 {
				return s, nil, fmt.Errorf("%w: tolerance must be non-negative", ErrValidation)
			}
			params.Tolerance = *ev.Tolerance
		}
		s.Stage = model.StageRemovingBackground
		return s, StartRemoval{Epoch: s.Epoch, Image: s.Artifacts.HeroWithBackground, Params: params}, nil

	case RemovalFinished:
		if ev.Epoch != s.Epoch || s.Stage != model.StageRemovingBackground {
			return s, nil, ErrStaleResult
		}
		if ev.Err != nil || ev.Image == nil {
			return failed(s, ev.Err, ErrRemoval, "Ocorreu um erro ao remover o fundo da imagem."), nil, nil
		}
		params := ev.Params
		s.Artifacts.TransparentHero = ev.Image
		s.Artifacts.Keying = &params
		s.Stage = model.StagePreviewTransparent
		return s, nil, nil

	case Confirm:
		if s.Stage != model.StagePreviewTransparent {
			return s, nil, invalidEvent(s, ev)
		}
		comp := NewCompositor(m.defaults.SurfaceWidth, m.defaults.InitialScale)
		comp.SetForeground(s.Artifacts.TransparentHero)
		s.Composition = comp
		s.Stage = model.StageComposing
		return s, LoadBackground{Epoch: s.Epoch, Source: s.Artifacts.Background}, nil

	case BackgroundLoaded:
		if ev.Epoch != s.Epoch || s.Stage != model.StageComposing || s.Composition == nil {
			return s, nil, ErrStaleResult
		}
		if ev.Err != nil || ev.Image == nil {
			s.Composition = nil
			return failed(s, ev.Err, ErrDecode, "Não foi possível carregar a imagem de fundo."), nil, nil
		}
		comp := s.Composition.Clone()
		comp.SetBackground(ev.Image)
		s.Composition = comp
		return s, nil, nil

	case SetTransform:
		if s.Stage != model.StageComposing || s.Composition == nil {
			return s, nil, invalidEvent(s, ev)
		}
		comp := s.Composition.Clone()
		if ev.Scale != nil {
			comp.SetScale(*ev.Scale)
		}
		if ev.Rotation != nil {
			comp.SetRotation(*ev.Rotation)
		}
		s.Composition = comp
		return s, nil, nil

	case Pointer:
		if s.Stage != model.StageComposing || s.Composition == nil {
			return s, nil, invalidEvent(s, ev)
		}
		comp := s.Composition.Clone()
		comp.HandlePointer(ev.Event)
		s.Composition = comp
		return s, nil, nil
	}

	return s, nil, fmt.Errorf("%w: unknown event %T", ErrInvalidEvent, ev)
}

func (m *Machine) applyInput(s State, ev Event) (State, Command, error) {
	switch ev := ev.(type) {
	case SelectPhoto:
		if len(ev.Data) == 0 {
			return s, nil, fmt.Errorf("%w: empty photo", ErrValidation)
		}
		if ev.ContentType != "" && !strings.HasPrefix(ev.ContentType, "image/") {
			return s, nil, fmt.Errorf("%w: photo must be an image", ErrValidation)
		}
		s.Artifacts.Photo = ev.Data
		s.Artifacts.PhotoType = ev.ContentType
		s.Stage = model.StageImageSelected
	case SetPrompt:
		s.Artifacts.CustomPrompt = ev.Text
	case SelectMission:
		s.Artifacts.Mission = ev.Mission
	case SelectBackground:
		s.Artifacts.Background = ev.Source
	}
	s.Artifacts.LastError = ""
	return s, nil, nil
}

func validateGenerate(a Artifacts) string {
	switch {
	case len(a.Photo) == 0:
		return "Por favor, selecione uma imagem para o herói."
	case a.Background.IsZero():
		return "Por favor, selecione uma imagem de fundo."
	case a.Mission.IsNone():
		return "Por favor, escolha uma missão (ODS) para o seu herói."
	}
	return ""
}

// failed 进入 Error 阶段；失败步骤不覆盖已有产物
func failed(s State, err, kind error, fallback string) State {
	msg := fallback
	if err != nil {
		msg = err.Error()
		if !errors.Is(err, kind) {
			msg = fmt.Sprintf("%v: %v", kind, err)
		}
	}
	s.Stage = model.StageError
	s.Artifacts.LastError = msg
	return s
}

func invalidEvent(s State, ev Event) error {
	return fmt.Errorf("%w: %s during %s", ErrInvalidEvent, ev.eventName(), s.Stage)
}

// View 状态快照
func (s State) View(id string) model.SessionView {
	a := s.Artifacts
	v := model.SessionView{
		ID:             id,
		Stage:          s.Stage,
		Epoch:          s.Epoch,
		HasPhoto:       len(a.Photo) > 0,
		CustomPrompt:   a.CustomPrompt,
		Mission:        a.Mission,
		Background:     a.Background.Describe(),
		HasHero:        a.HeroWithBackground != nil,
		HasTransparent: a.TransparentHero != nil,
		Keying:         a.Keying,
		Error:          a.LastError,
	}
	if s.Composition != nil {
		t := s.Composition.Transform()
		v.Transform = &t
		v.Dragging = s.Composition.Dragging()
		if size := s.Composition.Size(); size.Width > 0 {
			v.Surface = &size
		}
		if box, ok := s.Composition.ForegroundBounds(); ok {
			v.Foreground = &box
		}
	}
	return v
}
