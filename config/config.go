package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Generator   GeneratorConfig   `mapstructure:"generator"`
	Keying      KeyingConfig      `mapstructure:"keying"`
	Composition CompositionConfig `mapstructure:"composition"`
	Background  BackgroundConfig  `mapstructure:"background"`
	Session     SessionConfig     `mapstructure:"session"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// GeneratorConfig 远程图像生成配置
type GeneratorConfig struct {
	Model          string        `mapstructure:"model"`
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	QueueTimeout   time.Duration `mapstructure:"queue_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// KeyingConfig 抠像默认参数
type KeyingConfig struct {
	KeyColor  string  `mapstructure:"key_color"`
	Tolerance float64 `mapstructure:"tolerance"`
}

// CompositionConfig 合成画布与导出配置
type CompositionConfig struct {
	SurfaceWidth   int     `mapstructure:"surface_width"`
	InitialScale   float64 `mapstructure:"initial_scale"`
	ExportFormat   string  `mapstructure:"export_format"`
	ExportFilename string  `mapstructure:"export_filename"`
}

// BackgroundConfig 背景来源配置
type BackgroundConfig struct {
	DefaultSource string        `mapstructure:"default_source"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxSize       int64         `mapstructure:"max_size"`
}

// SessionConfig 会话空闲清理配置
type SessionConfig struct {
	MaxIdle       time.Duration `mapstructure:"max_idle"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/gif", "image/webp", "image/bmp", "image/x-tga"})

	v.SetDefault("generator.model", "gemini-2.5-flash-image")
	v.SetDefault("generator.api_key_env", "API_KEY")
	v.SetDefault("generator.max_concurrent", 3)
	v.SetDefault("generator.queue_timeout", 30*time.Second)
	v.SetDefault("generator.request_timeout", 2*time.Minute)

	v.SetDefault("keying.key_color", "#00FF00")
	v.SetDefault("keying.tolerance", 60)

	v.SetDefault("composition.surface_width", 1024)
	v.SetDefault("composition.initial_scale", 0.8)
	v.SetDefault("composition.export_format", "png")
	v.SetDefault("composition.export_filename", "meu-heroi-multiverso-composicao.png")

	v.SetDefault("background.default_source", "./static/backgrounds/default.png")
	v.SetDefault("background.fetch_timeout", 15*time.Second)
	v.SetDefault("background.max_size", 20*1024*1024)

	v.SetDefault("session.max_idle", time.Hour)
	v.SetDefault("session.sweep_interval", 5*time.Minute)
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/gif", "image/webp", "image/bmp", "image/x-tga"},
		},
		Generator: GeneratorConfig{
			Model:          "gemini-2.5-flash-image",
			APIKeyEnv:      "API_KEY",
			MaxConcurrent:  3,
			QueueTimeout:   30 * time.Second,
			RequestTimeout: 2 * time.Minute,
		},
		Keying: KeyingConfig{
			KeyColor:  "#00FF00",
			Tolerance: 60,
		},
		Composition: CompositionConfig{
			SurfaceWidth:   1024,
			InitialScale:   0.8,
			ExportFormat:   "png",
			ExportFilename: "meu-heroi-multiverso-composicao.png",
		},
		Background: BackgroundConfig{
			DefaultSource: "./static/backgrounds/default.png",
			FetchTimeout:  15 * time.Second,
			MaxSize:       20 * 1024 * 1024,
		},
		Session: SessionConfig{
			MaxIdle:       time.Hour,
			SweepInterval: 5 * time.Minute,
		},
	}
}
