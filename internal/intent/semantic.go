package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/llm"
	"github.com/aihub/campus-companion/internal/logger"
	"github.com/aihub/campus-companion/internal/metrics"
)

const (
	defaultSemanticTimeout    = 3 * time.Second
	defaultSemanticConfidence = 0.9
)

// 每个意图的示例短语，写进提示词
var intentExamples = map[Intent][]string{
	ContactLookup:     {"What is the phone number of the Roy canteen?", "Email of the hostel warden"},
	LocationLookup:    {"Where is room 204?", "How do I get to the library?"},
	FacultyLookup:     {"Who is the HOD of computer science?", "Tell me about Prof. Sen"},
	DocumentKnowledge: {"How is CGPA calculated?", "What is the attendance policy?"},
	SmallTalk:         {"Hello there", "Thanks for the help"},
	Fallback:          {"What's the weather tomorrow?", "Recommend a movie"},
}

const semanticSystemPrompt = "You classify questions sent to a university campus assistant. " +
	"Answer with a single JSON object and nothing else."

// SemanticOptions 语义仲裁参数
type SemanticOptions struct {
	Timeout           time.Duration
	DefaultConfidence float64
}

// SemanticMatcher 调用生成式模型仲裁意图，单次尝试，超时即放弃
type SemanticMatcher struct {
	generator llm.Generator
	opts      SemanticOptions
	logger    *zap.Logger
	metrics   *metrics.Collector
	prompt    string
}

type semanticAnswer struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
}

// NewSemanticMatcher generator 为 nil 时匹配器不产生信号
func NewSemanticMatcher(generator llm.Generator, opts SemanticOptions, log *zap.Logger, m *metrics.Collector) *SemanticMatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSemanticTimeout
	}
	if opts.DefaultConfidence <= 0 || opts.DefaultConfidence > 1 {
		opts.DefaultConfidence = defaultSemanticConfidence
	}
	return &SemanticMatcher{
		generator: generator,
		opts:      opts,
		logger:    logger.OrNop(log),
		metrics:   m,
		prompt:    buildTaxonomy(),
	}
}

// Level 实现 Matcher
func (m *SemanticMatcher) Level() Level { return LevelSemantic }

// Match 返回至多一个意图；任何失败都只记录日志
func (m *SemanticMatcher) Match(ctx context.Context, text string) Signal {
	if m.generator == nil {
		return Signal{}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	raw, err := m.generator.Generate(callCtx, llm.Request{
		System:    semanticSystemPrompt,
		Prompt:    m.prompt + "\nQuestion: " + text,
		MaxTokens: 64,
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, llm.ErrCircuitOpen):
			outcome = "skipped"
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
			outcome = "timeout"
		}
		m.metrics.ObserveSemantic(outcome)
		m.logger.Warn("semantic arbitration failed",
			zap.String("provider", m.generator.Name()),
			zap.String("outcome", outcome),
			zap.Error(err))
		return Signal{}
	}

	in, confidence, err := m.parse(raw)
	if err != nil {
		m.metrics.ObserveSemantic("unparsable")
		m.logger.Warn("semantic answer not usable", zap.String("answer", truncate(raw, 200)), zap.Error(err))
		return Signal{}
	}

	m.metrics.ObserveSemantic("ok")
	return Signal{in: confidence}
}

// parse 优先解析 JSON；纯文本回答只有恰好提到一个意图时才采纳
func (m *SemanticMatcher) parse(raw string) (Intent, float64, error) {
	if obj := extractJSONObject(raw); obj != "" {
		var ans semanticAnswer
		if err := json.Unmarshal([]byte(obj), &ans); err == nil && ans.Intent != "" {
			in, err := Parse(ans.Intent)
			if err != nil {
				return "", 0, err
			}
			if ans.Confidence == nil {
				return in, m.opts.DefaultConfidence, nil
			}
			return in, clamp01(*ans.Confidence), nil
		}
	}

	var found []Intent
	padded := " " + labelText(raw) + " "
	for _, in := range declared {
		if strings.Contains(padded, " "+string(in)+" ") {
			found = append(found, in)
		}
	}
	if len(found) != 1 {
		return "", 0, fmt.Errorf("answer names %d intents", len(found))
	}
	return found[0], m.opts.DefaultConfidence, nil
}

// labelText 保留下划线，便于按词边界查找意图标签
func labelText(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, raw)
}

func buildTaxonomy() string {
	var b strings.Builder
	b.WriteString("Pick exactly one intent for the question.\nIntents:\n")
	for _, in := range declared {
		b.WriteString("- ")
		b.WriteString(string(in))
		b.WriteString(": e.g. ")
		b.WriteString(strings.Join(quoteAll(intentExamples[in]), ", "))
		b.WriteString("\n")
	}
	b.WriteString(`Respond as {"intent": "<intent>", "confidence": <0..1>}.`)
	return b.String()
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// extractJSONObject 去掉代码块包裹，取第一个完整的花括号对象
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
