package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable 未配置凭据或提供方
var ErrUnavailable = errors.New("llm provider unavailable")

// Request 一次生成请求
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator 生成式模型调用。实现只发起一次请求，不做重试。
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Config 提供方配置
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Factory 根据配置创建 Generator
type Factory func(cfg Config) (Generator, error)

var registry = map[string]Factory{}

// Register 注册提供方
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

// New 按名称创建 Generator，"none" 返回 ErrUnavailable
func New(name string, cfg Config) (Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || key == "none" {
		return nil, ErrUnavailable
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported llm provider: %s", name)
	}
	return factory(cfg)
}

func init() {
	Register("openai", func(cfg Config) (Generator, error) { return NewOpenAIGenerator(cfg) })
	Register("anthropic", func(cfg Config) (Generator, error) { return NewAnthropicGenerator(cfg) })
}
