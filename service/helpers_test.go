package service

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// heroImage 绿色背景中间一块红色人物
func heroImage(w, h int, bg color.NRGBA) *image.NRGBA {
	img := solidImage(w, h, bg)
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 40, A: 255})
		}
	}
	return img
}

func mustPNG(img image.Image) []byte {
	data, err := EncodePNG(img)
	if err != nil {
		panic(err)
	}
	return data
}

type fakeGenerator struct {
	mu       sync.Mutex
	data     []byte
	err      error
	calls    int
	requests []GenerationRequest
	release  chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	g.requests = append(g.requests, req)
	release := g.release
	g.mu.Unlock()

	if release != nil {
		<-release
	}
	return g.data, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeLoader struct {
	img image.Image
	err error
}

func (l fakeLoader) Load(context.Context, BackgroundSource) (image.Image, error) {
	return l.img, l.err
}

var defaultBackground = BackgroundSource{Path: "../static/backgrounds/default.png"}

func testDefaults() Defaults {
	return Defaults{
		Background:   defaultBackground,
		Keying:       model.DefaultKeyingParameters(),
		SurfaceWidth: 200,
		InitialScale: 0.8,
	}
}

var (
	studioGreen = color.NRGBA{R: 2, G: 250, B: 3, A: 255}
	skyBlue     = color.NRGBA{R: 20, G: 60, B: 180, A: 255}
)
