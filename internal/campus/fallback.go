package campus

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/llm"
	"github.com/aihub/campus-companion/internal/logger"
)

const (
	// StaticFallbackMessage 生成失败或未配置模型时的回复
	StaticFallbackMessage = "I'm Campus Companion, and I can help with campus information such as:\n" +
		"- contact details for faculty, canteens, hostels and administration\n" +
		"- building, room and facility locations\n" +
		"- academic rules, CGPA policies and hostel guidelines\n" +
		"Please ask something related to your campus and I'll be happy to help!"

	// EmptyQueryMessage 空查询提示
	EmptyQueryMessage = "Please type a question about your campus, for example \"Where is the library?\" or \"How is CGPA calculated?\""

	fallbackSystemPrompt = "You are Campus Companion, a friendly assistant for university students. " +
		"Answer briefly in at most three sentences. If the question needs campus-specific data you do not have, " +
		"say so and suggest asking about contacts, locations, faculty or academic rules."
)

// FallbackResponder 无法由数据处理器回答时生成回复，永不返回空串
type FallbackResponder struct {
	generator llm.Generator
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewFallbackResponder generator 为 nil 时只返回固定文案
func NewFallbackResponder(generator llm.Generator, timeout time.Duration, maxTokens int, log *zap.Logger) *FallbackResponder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &FallbackResponder{
		generator: generator,
		timeout:   timeout,
		maxTokens: maxTokens,
		logger:    logger.OrNop(log),
	}
}

// Respond 先尝试生成，失败回落到固定文案
func (f *FallbackResponder) Respond(ctx context.Context, query string, result intent.Result) string {
	if strings.TrimSpace(query) == "" {
		return EmptyQueryMessage
	}
	if f.generator == nil {
		return StaticFallbackMessage
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	text, err := f.generator.Generate(ctx, llm.Request{
		System:    fallbackSystemPrompt,
		Prompt:    query,
		MaxTokens: f.maxTokens,
	})
	if err != nil {
		f.logger.Warn("fallback generation failed",
			zap.Error(err),
			zap.String("primary", result.Primary.Intent.String()),
			zap.Float64("confidence", result.Primary.Confidence))
		return StaticFallbackMessage
	}
	if text = strings.TrimSpace(text); text == "" {
		return StaticFallbackMessage
	}
	return text
}
