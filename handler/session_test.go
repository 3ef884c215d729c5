package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
	"github.com/dlrandrade/Multiverso-do-Impacto/model"
	"github.com/dlrandrade/Multiverso-do-Impacto/service"
)

type stubGenerator struct{ data []byte }

func (g stubGenerator) Generate(context.Context, service.GenerationRequest) ([]byte, error) {
	return g.data, nil
}

type stubLoader struct{ img image.Image }

func (l stubLoader) Load(context.Context, service.BackgroundSource) (image.Image, error) {
	return l.img, nil
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := service.EncodePNG(img)
	require.NoError(t, err)
	return data
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    model.SessionView `json:"data"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Composition.SurfaceWidth = 120

	hero := fill(30, 30, color.NRGBA{G: 255, A: 255})
	machine := service.NewMachine(service.Defaults{
		Background:   service.BackgroundSource{Path: "bg.png"},
		Keying:       model.DefaultKeyingParameters(),
		SurfaceWidth: cfg.Composition.SurfaceWidth,
		InitialScale: cfg.Composition.InitialScale,
	})
	runner := service.NewRunner(
		stubGenerator{data: pngBytes(t, hero)},
		stubLoader{img: fill(240, 120, color.NRGBA{B: 200, A: 255})},
	)
	store := service.NewSessionStore(machine, runner)
	t.Cleanup(store.CloseAll)

	r := gin.New()
	NewSessionHandler(cfg, store).Register(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path string, v any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(v)
	return do(r, method, path, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func multipartImage(t *testing.T, data []byte, contentType string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="foto.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	require.NotEmpty(t, env.Data.ID)
	assert.Equal(t, model.StageIdle, env.Data.Stage)
	return env.Data.ID
}

func TestSessionFlow(t *testing.T) {
	r := setupRouter(t)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	body, ct := multipartImage(t, pngBytes(t, fill(4, 4, color.NRGBA{R: 90, A: 255})), "image/png")
	w := do(r, http.MethodPost, base+"/photo", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StageImageSelected, decode(t, w).Data.Stage)

	w = doJSON(r, http.MethodPut, base+"/mission", map[string]string{"mission": "ods13"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.Mission("ODS13"), decode(t, w).Data.Mission)

	w = do(r, http.MethodGet, base+"/export", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, base+"/generate", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	waitFor(t, r, base, func(v model.SessionView) bool { return v.Stage == model.StageBackgroundRemoval })

	w = do(r, http.MethodGet, base+"/hero", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = do(r, http.MethodGet, base+"/transparent", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, base+"/key", map[string]int{"x": 1, "y": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	waitFor(t, r, base, func(v model.SessionView) bool { return v.Stage == model.StagePreviewTransparent })

	w = do(r, http.MethodPost, base+"/confirm", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := waitFor(t, r, base, func(v model.SessionView) bool { return v.Surface != nil })
	assert.Equal(t, model.Size{Width: 120, Height: 60}, *view.Surface)
	require.NotNil(t, view.Transform)
	assert.Equal(t, 60.0, view.Transform.X)
	assert.Equal(t, 30.0, view.Transform.Y)
	require.NotNil(t, view.Foreground)
	assert.Greater(t, view.Foreground.Height, 0)

	w = doJSON(r, http.MethodPut, base+"/transform", map[string]float64{"scale": 5, "rotation": -90})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode(t, w).Data
	assert.Equal(t, model.MaxScale, view.Transform.Scale)
	assert.Equal(t, 270.0, view.Transform.RotationDegrees)

	for _, ev := range []service.PointerEvent{
		{Kind: service.PointerDown, X: 10, Y: 10},
		{Kind: service.PointerMove, X: 15, Y: 12},
		{Kind: service.PointerUp, X: 15, Y: 12},
	} {
		w = doJSON(r, http.MethodPost, base+"/pointer", ev)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	view = decode(t, w).Data
	assert.Equal(t, 65.0, view.Transform.X)
	assert.Equal(t, 32.0, view.Transform.Y)
	assert.False(t, view.Dragging)

	w = do(r, http.MethodGet, base+"/render", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, base+"/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "meu-heroi-multiverso-composicao.png")
	assert.Equal(t, "\x89PNG", w.Body.String()[:4])

	w = do(r, http.MethodPost, base+"/reset", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decode(t, w).Data
	assert.Equal(t, model.StageIdle, view.Stage)
	assert.False(t, view.HasPhoto)
	assert.Nil(t, view.Surface)
}

func TestGenerateValidationReturnsView(t *testing.T) {
	r := setupRouter(t)
	id := createSession(t, r)

	w := do(r, http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, model.StageIdle, env.Data.Stage)
	assert.NotEmpty(t, env.Data.Error)
}

func TestUploadRejections(t *testing.T) {
	r := setupRouter(t)
	id := createSession(t, r)
	path := "/api/v1/sessions/" + id + "/photo"

	body, ct := multipartImage(t, []byte("%PDF-1.4"), "application/pdf")
	w := do(r, http.MethodPost, path, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackgroundURLValidation(t *testing.T) {
	r := setupRouter(t)
	id := createSession(t, r)
	path := "/api/v1/sessions/" + id + "/background"

	w := doJSON(r, http.MethodPost, path, map[string]string{"url": "https://example.com/space.webp"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://example.com/space.webp", decode(t, w).Data.Background)

	for _, raw := range []string{"https://example.com/space", "/etc/app/photo.png", "file:///tmp/hero.png"} {
		w = doJSON(r, http.MethodPost, path, map[string]string{"url": raw})
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}

	w = do(r, http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	assert.Equal(t, "https://example.com/space.webp", decode(t, w).Data.Background)
}

func TestMissionsAndUnknownSession(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/missions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []model.MissionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 17)

	w = do(r, http.MethodGet, "/api/v1/sessions/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := createSession(t, r)
	w = do(r, http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComposingEndpointsOutsideComposing(t *testing.T) {
	r := setupRouter(t)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	w := doJSON(r, http.MethodPut, base+"/transform", map[string]float64{"scale": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, base+"/pointer", map[string]any{"type": "spin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, base+"/render", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func waitFor(t *testing.T, r http.Handler, base string, cond func(model.SessionView) bool) model.SessionView {
	t.Helper()
	var view model.SessionView
	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, base, nil, "")
		if w.Code != http.StatusOK {
			return false
		}
		var env envelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			return false
		}
		view = env.Data
		return cond(view)
	}, 5*time.Second, 5*time.Millisecond, fmt.Sprintf("condition on %s", base))
	return view
}
