package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
	"github.com/dlrandrade/Multiverso-do-Impacto/model"
	"github.com/dlrandrade/Multiverso-do-Impacto/utils"
)

// GenerationRequest 生成英雄图所需的输入
type GenerationRequest struct {
	Photo        []byte
	PhotoType    string
	CustomPrompt string
	Mission      model.Mission
}

// HeroGenerator 外部图像生成协作者：返回纯绿背景上的英雄图编码字节
type HeroGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]byte, error)
}

// GeminiGenerator 基于 Gemini 图像模型的生成服务
type GeminiGenerator struct {
	client         *genai.Client
	model          string
	semaphore      chan struct{}
	queueTimeout   time.Duration
	requestTimeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, cfg *config.GeneratorConfig) (*GeminiGenerator, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	g := &GeminiGenerator{
		client:         client,
		model:          cfg.Model,
		semaphore:      make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout:   cfg.QueueTimeout,
		requestTimeout: cfg.RequestTimeout,
	}
	if g.queueTimeout <= 0 {
		g.queueTimeout = 30 * time.Second
	}
	if g.requestTimeout <= 0 {
		g.requestTimeout = 2 * time.Minute
	}
	return g, nil
}

// Generate 调用模型生成英雄图
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) ([]byte, error) {
	// 并发控制
	queueCtx, cancel := context.WithTimeout(ctx, g.queueTimeout)
	defer cancel()

	select {
	case g.semaphore <- struct{}{}:
		defer func() { <-g.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("%w: generation queue is full, try again later", ErrGeneration)
	}

	reqCtx, cancelReq := context.WithTimeout(ctx, g.requestTimeout)
	defer cancelReq()

	startTime := time.Now()
	mimeType := req.PhotoType
	if mimeType == "" {
		mimeType = "image/png"
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(req.Photo, mimeType),
		genai.NewPartFromText(BuildPrompt(req.CustomPrompt, req.Mission)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(reqCtx, g.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				utils.Logger.Info("hero generated",
					zap.String("model", g.model),
					zap.String("mission", string(req.Mission)),
					zap.String("mime_type", part.InlineData.MIMEType),
					zap.Duration("duration", time.Since(startTime)))
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: failed to generate image, the model did not return a valid image part", ErrGeneration)
}

// UnavailableGenerator 未配置生成服务时使用，所有请求均失败
type UnavailableGenerator struct {
	Reason error
}

func (g UnavailableGenerator) Generate(context.Context, GenerationRequest) ([]byte, error) {
	reason := g.Reason
	if reason == nil {
		reason = errors.New("image generator not configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrGeneration, reason)
}

// HeroCache 生成结果缓存
type HeroCache interface {
	GetHero(ctx context.Context, key string) ([]byte, error)
	SetHero(ctx context.Context, key string, data []byte) error
}

// CachedGenerator 以 (照片, 提示词, 任务) 的 MD5 为键缓存生成结果；缓存故障不影响生成
type CachedGenerator struct {
	inner HeroGenerator
	cache HeroCache
}

func NewCachedGenerator(inner HeroGenerator, cache HeroCache) *CachedGenerator {
	return &CachedGenerator{inner: inner, cache: cache}
}

func (g *CachedGenerator) Generate(ctx context.Context, req GenerationRequest) ([]byte, error) {
	key := GenerationCacheKey(req)

	cached, err := g.cache.GetHero(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if len(cached) > 0 {
		utils.Logger.Info("cache hit", zap.String("cache_key", key))
		return cached, nil
	}

	data, err := g.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := g.cache.SetHero(ctx, key, data); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}
	return data, nil
}

// GenerationCacheKey 生成请求的缓存键
func GenerationCacheKey(req GenerationRequest) string {
	return utils.BytesMD5(req.Photo) + ":" + utils.StringMD5(req.CustomPrompt+"\x00"+string(req.Mission))
}
