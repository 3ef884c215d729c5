package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
)

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetHero 从缓存获取生成的英雄图，未命中返回 (nil, nil)
func (s *RedisService) GetHero(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, "hero:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// SetHero 写入缓存
func (s *RedisService) SetHero(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, "hero:"+key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
