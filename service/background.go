package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
)

var backgroundURLPattern = regexp.MustCompile(`(?i)\.(jpeg|jpg|gif|png|webp)$`)

// BackgroundSource 背景来源：上传的文件字节、远程 http(s) URL，或仅由配置给出的本地路径
type BackgroundSource struct {
	Data []byte
	Name string
	URL  string
	Path string
}

// IsZero 未选择背景
func (b BackgroundSource) IsZero() bool {
	return len(b.Data) == 0 && b.URL == "" && b.Path == ""
}

// Describe 用于状态展示，本地路径不对外暴露
func (b BackgroundSource) Describe() string {
	switch {
	case len(b.Data) > 0:
		if b.Name != "" {
			return "upload:" + b.Name
		}
		return "upload"
	case b.URL != "":
		return b.URL
	case b.Path != "":
		return "default"
	default:
		return ""
	}
}

// BackgroundFromURL 校验用户提交的 URL：仅允许 http(s)，且路径以图片扩展名结尾；空字符串表示清除背景
func BackgroundFromURL(raw string) (BackgroundSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return BackgroundSource{}, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return BackgroundSource{}, fmt.Errorf("%w: background url must be an http or https address", ErrValidation)
	}
	if !backgroundURLPattern.MatchString(u.Path) {
		return BackgroundSource{}, fmt.Errorf("%w: background url must point to a jpeg, jpg, gif, png or webp image", ErrValidation)
	}
	return BackgroundSource{URL: raw}, nil
}

// ConfiguredBackground 系统默认背景：http(s) 地址按 URL 加载，其余视为本地文件
func ConfiguredBackground(src string) BackgroundSource {
	if isHTTP(src) {
		return BackgroundSource{URL: src}
	}
	if src == "" {
		return BackgroundSource{}
	}
	return BackgroundSource{Path: src}
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// BackgroundLoader 将背景来源解码为位图
type BackgroundLoader interface {
	Load(ctx context.Context, src BackgroundSource) (image.Image, error)
}

// HTTPBackgroundLoader 支持上传字节、http(s) URL 与本地路径
type HTTPBackgroundLoader struct {
	client  *http.Client
	maxSize int64
}

func NewHTTPBackgroundLoader(cfg *config.BackgroundConfig) *HTTPBackgroundLoader {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPBackgroundLoader{
		client:  &http.Client{Timeout: timeout},
		maxSize: cfg.MaxSize,
	}
}

func (l *HTTPBackgroundLoader) Load(ctx context.Context, src BackgroundSource) (image.Image, error) {
	var data []byte
	var err error
	switch {
	case len(src.Data) > 0:
		data = src.Data
	case src.URL != "":
		if !isHTTP(src.URL) {
			return nil, fmt.Errorf("%w: background url %q is not http(s)", ErrDecode, src.URL)
		}
		if data, err = l.fetch(ctx, src.URL); err != nil {
			return nil, fmt.Errorf("%w: background %s unreachable: %v", ErrDecode, src.URL, err)
		}
	case src.Path != "":
		if data, err = os.ReadFile(src.Path); err != nil {
			return nil, fmt.Errorf("%w: default background unreadable: %v", ErrDecode, err)
		}
	default:
		return nil, fmt.Errorf("%w: no background selected", ErrDecode)
	}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (l *HTTPBackgroundLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	limit := l.maxSize
	if limit <= 0 {
		limit = 20 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	return data, nil
}
