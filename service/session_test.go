package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

func waitStage(t *testing.T, sess *Session, stage model.PipelineStage) model.SessionView {
	t.Helper()
	var view model.SessionView
	require.Eventually(t, func() bool {
		v, err := sess.Snapshot(context.Background())
		if err != nil {
			return false
		}
		view = v
		return v.Stage == stage
	}, 5*time.Second, 5*time.Millisecond, "waiting for %s", stage)
	return view
}

func newTestSession(gen HeroGenerator, loader BackgroundLoader) *Session {
	return NewSession("test", NewMachine(testDefaults()), NewRunner(gen, loader))
}

func TestSessionScenario(t *testing.T) {
	gen := &fakeGenerator{data: mustPNG(heroImage(40, 40, studioGreen))}
	sess := newTestSession(gen, fakeLoader{img: solidImage(400, 200, skyBlue)})
	defer sess.Close()
	ctx := context.Background()

	_, err := sess.Dispatch(ctx, SelectPhoto{Data: []byte("jpeg"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	_, err = sess.Dispatch(ctx, SelectMission{Mission: "ODS6"})
	require.NoError(t, err)

	view, err := sess.Dispatch(ctx, Generate{})
	require.NoError(t, err)
	assert.Contains(t, []model.PipelineStage{model.StageGeneratingHero, model.StageBackgroundRemoval}, view.Stage)

	view = waitStage(t, sess, model.StageBackgroundRemoval)
	assert.True(t, view.HasHero)
	assert.Equal(t, 1, gen.Calls())

	_, err = sess.Dispatch(ctx, PickKeyColor{Color: model.Color{R: 2, G: 250, B: 3}})
	require.NoError(t, err)
	view = waitStage(t, sess, model.StagePreviewTransparent)
	assert.True(t, view.HasTransparent)
	require.NotNil(t, view.Keying)
	assert.Equal(t, float64(model.DefaultTolerance), view.Keying.Tolerance)

	_, err = sess.Dispatch(ctx, Confirm{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, _ := sess.Snapshot(ctx)
		return v.Surface != nil
	}, 5*time.Second, 5*time.Millisecond)

	var png []byte
	require.NoError(t, sess.Read(ctx, func(s *State) error {
		var err error
		png, err = s.Composition.Export(FormatPNG)
		return err
	}))
	assert.Equal(t, "\x89PNG", string(png[:4]))

	view, err = sess.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StageComposing, view.Stage)
}

func TestSessionDiscardsResultAfterReset(t *testing.T) {
	gen := &fakeGenerator{data: mustPNG(heroImage(8, 8, studioGreen)), release: make(chan struct{})}
	sess := newTestSession(gen, fakeLoader{})
	defer sess.Close()
	ctx := context.Background()

	_, err := sess.Dispatch(ctx, SelectPhoto{Data: []byte("jpeg")})
	require.NoError(t, err)
	_, err = sess.Dispatch(ctx, SelectMission{Mission: "ODS1"})
	require.NoError(t, err)
	view, err := sess.Dispatch(ctx, Generate{})
	require.NoError(t, err)
	require.Equal(t, model.StageGeneratingHero, view.Stage)

	view, err = sess.Dispatch(ctx, Reset{})
	require.NoError(t, err)
	require.Equal(t, model.StageIdle, view.Stage)

	close(gen.release)
	require.Eventually(t, func() bool { return gen.Calls() == 1 }, time.Second, time.Millisecond)

	// 迟到的结果不得改变状态
	time.Sleep(50 * time.Millisecond)
	view, err = sess.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StageIdle, view.Stage)
	assert.False(t, view.HasHero)
	assert.False(t, view.HasPhoto)
}

func TestSessionGenerationError(t *testing.T) {
	sess := newTestSession(UnavailableGenerator{}, fakeLoader{})
	defer sess.Close()
	ctx := context.Background()

	_, _ = sess.Dispatch(ctx, SelectPhoto{Data: []byte("jpeg")})
	_, _ = sess.Dispatch(ctx, SelectMission{Mission: "ODS2"})
	_, err := sess.Dispatch(ctx, Generate{})
	require.NoError(t, err)

	view := waitStage(t, sess, model.StageError)
	assert.Contains(t, view.Error, "generation error")
}

func TestSessionUndecodableHero(t *testing.T) {
	sess := newTestSession(&fakeGenerator{data: []byte("garbage")}, fakeLoader{})
	defer sess.Close()
	ctx := context.Background()

	_, _ = sess.Dispatch(ctx, SelectPhoto{Data: []byte("jpeg")})
	_, _ = sess.Dispatch(ctx, SelectMission{Mission: "ODS2"})
	_, _ = sess.Dispatch(ctx, Generate{})

	view := waitStage(t, sess, model.StageError)
	assert.Contains(t, view.Error, "decode error")
	assert.False(t, view.HasHero)
}

func TestSessionClosed(t *testing.T) {
	sess := newTestSession(UnavailableGenerator{}, fakeLoader{})
	sess.Close()
	sess.Close()

	_, err := sess.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(NewMachine(testDefaults()), NewRunner(UnavailableGenerator{}, fakeLoader{}))
	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	for _, sess := range []*Session{a, b} {
		id, err := uuid.Parse(sess.ID())
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), id.Version())
	}
	assert.Equal(t, 2, store.Len())

	got, ok := store.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, store.Delete(a.ID()))
	assert.False(t, store.Delete(a.ID()))
	_, ok = store.Get(a.ID())
	assert.False(t, ok)

	assert.Equal(t, 0, store.Sweep(time.Hour))
	assert.Equal(t, 1, store.Sweep(-time.Second))
	assert.Equal(t, 0, store.Len())

	store.Create()
	store.CloseAll()
	assert.Equal(t, 0, store.Len())
}
