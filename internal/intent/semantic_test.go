package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/llm"
	"github.com/aihub/campus-companion/internal/metrics"
)

type fakeGenerator struct {
	answer string
	err    error
	block  bool
	calls  int
	last   llm.Request
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func TestSemanticMatcher_Parse(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		want   Signal
	}{
		{"json with confidence", `{"intent": "rag", "confidence": 0.82}`, Signal{DocumentKnowledge: 0.82}},
		{"json without confidence", `{"intent": "db_faculty"}`, Signal{FacultyLookup: 0.9}},
		{"fenced json", "```json\n{\"intent\": \"DB_LOCATION\", \"confidence\": 0.7}\n```", Signal{LocationLookup: 0.7}},
		{"confidence clipped", `{"intent": "small_talk", "confidence": 3}`, Signal{SmallTalk: 1.0}},
		{"zero confidence kept", `{"intent":"db_contact","confidence":0}`, Signal{ContactLookup: 0}},
		{"negative confidence clipped", `{"intent":"db_contact","confidence":-0.4}`, Signal{ContactLookup: 0}},
		{"plain text single label", "The intent is db_contact.", Signal{ContactLookup: 0.9}},
		{"plain text two labels", "either db_contact or db_location", Signal{}},
		{"unknown label", `{"intent": "parking"}`, Signal{}},
		{"garbage", "I am not sure", Signal{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{answer: tc.answer}
			m := NewSemanticMatcher(gen, SemanticOptions{}, nil, nil)
			assert.Equal(t, tc.want, m.Match(context.Background(), "who teaches databases"))
			assert.Equal(t, 1, gen.calls)
		})
	}
}

func TestSemanticMatcher_PromptListsTaxonomy(t *testing.T) {
	gen := &fakeGenerator{answer: `{"intent":"rag"}`}
	m := NewSemanticMatcher(gen, SemanticOptions{}, nil, nil)
	m.Match(context.Background(), "grading scheme?")

	for _, in := range All() {
		assert.Contains(t, gen.last.Prompt, string(in))
	}
	assert.Contains(t, gen.last.Prompt, "Question: grading scheme?")
}

func TestSemanticMatcher_TimeoutNeverRaises(t *testing.T) {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	gen := &fakeGenerator{block: true}
	m := NewSemanticMatcher(gen, SemanticOptions{Timeout: 20 * time.Millisecond}, nil, collector)

	start := time.Now()
	var out Signal
	require.NotPanics(t, func() { out = m.Match(context.Background(), "ambiguous question") })

	assert.Empty(t, out)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, gen.calls, "single attempt")
}

func TestSemanticMatcher_TransportError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	m := NewSemanticMatcher(gen, SemanticOptions{}, nil, nil)
	assert.Empty(t, m.Match(context.Background(), "q"))
	assert.Equal(t, 1, gen.calls)
}

func TestSemanticMatcher_NoGenerator(t *testing.T) {
	m := NewSemanticMatcher(nil, SemanticOptions{}, nil, nil)
	assert.Empty(t, m.Match(context.Background(), "q"))
}

func TestSemanticMatcher_InEngineTimeout(t *testing.T) {
	kw, err := NewKeywordMatcher(DefaultKeywordRules())
	require.NoError(t, err)
	sem := NewSemanticMatcher(&fakeGenerator{block: true}, SemanticOptions{Timeout: 10 * time.Millisecond}, nil, nil)
	engine, err := NewEngine(DefaultPolicy(), []Matcher{kw, sem}, nil, nil)
	require.NoError(t, err)

	// 关键词只给出 0.6 的兜底信号，语义层超时后沿用本地结果
	res := engine.Classify(context.Background(), "tell me a joke", Options{UseSemantic: true})
	assert.True(t, res.SemanticInvoked)
	assert.Equal(t, Score{Intent: Fallback, Confidence: 0.6}, res.Primary)
	assert.True(t, res.NeedsFallback)
}
