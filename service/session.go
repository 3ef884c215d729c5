package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
	"github.com/dlrandrade/Multiverso-do-Impacto/utils"
)

// Runner 执行状态机发出的异步命令
type Runner struct {
	generator   HeroGenerator
	backgrounds BackgroundLoader
	remover     *ChromaKeyRemover
}

func NewRunner(generator HeroGenerator, backgrounds BackgroundLoader) *Runner {
	return &Runner{
		generator:   generator,
		backgrounds: backgrounds,
		remover:     NewChromaKeyRemover(),
	}
}

// Run 阻塞执行命令并返回完成事件。没有取消：请求会一直运行到完成或失败。
func (r *Runner) Run(cmd Command) Event {
	ctx := context.Background()
	switch cmd := cmd.(type) {
	case StartGeneration:
		data, err := r.generator.Generate(ctx, cmd.Request)
		if err != nil {
			return GenerationFinished{Epoch: cmd.Epoch, Err: err}
		}
		img, err := DecodeImage(data)
		return GenerationFinished{Epoch: cmd.Epoch, Image: img, Err: err}
	case StartRemoval:
		img, err := r.remover.Remove(cmd.Image, cmd.Params)
		return RemovalFinished{Epoch: cmd.Epoch, Params: cmd.Params, Image: img, Err: err}
	case LoadBackground:
		img, err := r.backgrounds.Load(ctx, cmd.Source)
		return BackgroundLoaded{Epoch: cmd.Epoch, Image: img, Err: err}
	}
	return nil
}

type request struct {
	event Event
	read  func(*State) error
	reply chan reply
}

type reply struct {
	view model.SessionView
	err  error
}

// Session 单个用户会话。一个 goroutine 独占流水线状态并串行处理所有事件，
// 异步命令在工作 goroutine 中执行，结果带着发起时的 Epoch 回送到同一队列。
type Session struct {
	id      string
	machine *Machine
	runner  *Runner

	requests chan request
	results  chan Event
	done     chan struct{}

	state      State
	lastActive atomic.Int64
}

func NewSession(id string, machine *Machine, runner *Runner) *Session {
	s := &Session{
		id:       id,
		machine:  machine,
		runner:   runner,
		requests: make(chan request),
		results:  make(chan Event, 4),
		done:     make(chan struct{}),
		state:    machine.Initial(0),
	}
	s.lastActive.Store(time.Now().UnixNano())
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Dispatch 投递事件并返回处理后的快照
func (s *Session) Dispatch(ctx context.Context, ev Event) (model.SessionView, error) {
	return s.call(ctx, request{event: ev})
}

// Snapshot 返回当前状态快照
func (s *Session) Snapshot(ctx context.Context) (model.SessionView, error) {
	return s.call(ctx, request{read: func(*State) error { return nil }})
}

// Read 在会话 goroutine 内读取状态；fn 不得保留 State 引用
func (s *Session) Read(ctx context.Context, fn func(*State) error) error {
	_, err := s.call(ctx, request{read: fn})
	return err
}

// Close 停止事件循环；仍在执行的异步命令完成后结果被丢弃
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Session) call(ctx context.Context, req request) (model.SessionView, error) {
	s.lastActive.Store(time.Now().UnixNano())
	req.reply = make(chan reply, 1)
	select {
	case s.requests <- req:
	case <-s.done:
		return model.SessionView{}, ErrSessionClosed
	case <-ctx.Done():
		return model.SessionView{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.view, r.err
	case <-ctx.Done():
		return model.SessionView{}, ctx.Err()
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			var err error
			if req.read != nil {
				err = req.read(&s.state)
			} else {
				err = s.apply(req.event)
			}
			req.reply <- reply{view: s.state.View(s.id), err: err}
		case ev := <-s.results:
			if err := s.apply(ev); errors.Is(err, ErrStaleResult) {
				utils.Logger.Debug("stale result discarded",
					zap.String("session", s.id),
					zap.String("event", ev.eventName()),
					zap.Uint64("epoch", s.state.Epoch))
			}
		}
	}
}

func (s *Session) apply(ev Event) error {
	from := s.state.Stage
	next, cmd, err := s.machine.Transition(s.state, ev)
	if errors.Is(err, ErrStaleResult) {
		return err
	}
	s.state = next

	if from != next.Stage {
		utils.Logger.Info("stage changed",
			zap.String("session", s.id),
			zap.String("event", ev.eventName()),
			zap.String("from", from.String()),
			zap.String("to", next.Stage.String()),
			zap.Uint64("epoch", next.Epoch))
	}
	if cmd != nil {
		s.spawn(cmd)
	}
	return err
}

func (s *Session) spawn(cmd Command) {
	go func() {
		start := time.Now()
		ev := s.runner.Run(cmd)
		utils.Logger.Debug("command finished",
			zap.String("session", s.id),
			zap.String("command", cmd.commandName()),
			zap.Duration("duration", time.Since(start)))
		if ev == nil {
			return
		}
		select {
		case s.results <- ev:
		case <-s.done:
		}
	}()
}

// LastActive 最近一次调用时间
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
