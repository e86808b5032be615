package intent

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/metrics"
)

// MockMatcher 模拟匹配器
type MockMatcher struct {
	mock.Mock
	level Level
}

func newMockMatcher(level Level) *MockMatcher {
	return &MockMatcher{level: level}
}

func (m *MockMatcher) Level() Level { return m.level }

func (m *MockMatcher) Match(ctx context.Context, text string) Signal {
	args := m.Called(ctx, text)
	return args.Get(0).(Signal)
}

func newTestEngine(t *testing.T, matchers ...Matcher) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultPolicy(), matchers, nil, metrics.NewCollector(prometheus.NewRegistry()))
	require.NoError(t, err)
	return engine
}

func TestEngine_EmptyQueryShortCircuits(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	st := newMockMatcher(LevelStatistical)
	sem := newMockMatcher(LevelSemantic)
	engine := newTestEngine(t, kw, st, sem)

	for _, q := range []string{"", "   ", "\t\n"} {
		res := engine.Classify(context.Background(), q, Options{UseSemantic: true})
		assert.Equal(t, Score{Intent: Fallback, Confidence: 1.0}, res.Primary)
		assert.True(t, res.NeedsFallback)
		assert.False(t, res.MultiIntent)
		assert.Len(t, res.Scores, len(All()))
	}

	kw.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
	sem.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func TestEngine_MaxMerge(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	kw.On("Match", mock.Anything, "q").Return(Signal{ContactLookup: 0.85})
	st := newMockMatcher(LevelStatistical)
	st.On("Match", mock.Anything, "q").Return(Signal{ContactLookup: 0.78, LocationLookup: 0.1})

	res := newTestEngine(t, kw, st).Classify(context.Background(), "q", Options{})

	assert.Equal(t, ContactLookup, res.Primary.Intent)
	assert.Equal(t, 0.85, res.Primary.Confidence)
	assert.Equal(t, []Level{LevelKeyword}, res.Provenance)
	assert.Equal(t, 0.1, res.ConfidenceOf(LocationLookup))
	assert.False(t, res.MultiIntent)
	assert.False(t, res.NeedsFallback)
}

func TestEngine_MultiIntent(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	kw.On("Match", mock.Anything, mock.Anything).Return(Signal{ContactLookup: 0.85, LocationLookup: 0.80})

	res := newTestEngine(t, kw).Classify(context.Background(), "Roy canteen phone and location", Options{})

	assert.Equal(t, ContactLookup, res.Primary.Intent)
	assert.True(t, res.MultiIntent)
	require.Len(t, res.CoActive, 1)
	assert.Equal(t, Score{Intent: LocationLookup, Confidence: 0.80}, res.CoActive[0])
}

func TestEngine_MultiIntentThresholdInclusive(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	kw.On("Match", mock.Anything, mock.Anything).Return(Signal{DocumentKnowledge: 0.9, FacultyLookup: 0.25})

	res := newTestEngine(t, kw).Classify(context.Background(), "q", Options{})
	assert.True(t, res.MultiIntent)

	kw2 := newMockMatcher(LevelKeyword)
	kw2.On("Match", mock.Anything, mock.Anything).Return(Signal{DocumentKnowledge: 0.9, FacultyLookup: 0.24})
	res = newTestEngine(t, kw2).Classify(context.Background(), "q", Options{})
	assert.False(t, res.MultiIntent)
}

func TestEngine_TrustBoundary(t *testing.T) {
	cases := []struct {
		confidence float64
		fallback   bool
	}{
		{0.59, true},
		{0.6, false},
		{0.61, false},
	}
	for _, tc := range cases {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{FacultyLookup: tc.confidence})
		res := newTestEngine(t, kw).Classify(context.Background(), "q", Options{})
		assert.Equal(t, FacultyLookup, res.Primary.Intent)
		assert.Equal(t, tc.fallback, res.NeedsFallback, "confidence %.2f", tc.confidence)
	}
}

func TestEngine_FallbackPrimaryAlwaysNeedsFallback(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	kw.On("Match", mock.Anything, mock.Anything).Return(Signal{Fallback: 0.95})

	res := newTestEngine(t, kw).Classify(context.Background(), "weather", Options{})
	assert.Equal(t, Fallback, res.Primary.Intent)
	assert.True(t, res.NeedsFallback)
}

func TestEngine_AllZero(t *testing.T) {
	kw := newMockMatcher(LevelKeyword)
	kw.On("Match", mock.Anything, mock.Anything).Return(Signal{})
	st := newMockMatcher(LevelStatistical)
	st.On("Match", mock.Anything, mock.Anything).Return(Signal{ContactLookup: 0, SmallTalk: 0})

	res := newTestEngine(t, kw, st).Classify(context.Background(), "zxqv", Options{})
	assert.Equal(t, Score{Intent: Fallback, Confidence: 0}, res.Primary)
	assert.Equal(t, Fallback, res.Scores[0].Intent)
	assert.True(t, res.NeedsFallback)
	assert.False(t, res.MultiIntent)
}

func TestEngine_SemanticGate(t *testing.T) {
	t.Run("not opted in", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{FacultyLookup: 0.4})
		sem := newMockMatcher(LevelSemantic)

		res := newTestEngine(t, kw, sem).Classify(context.Background(), "q", Options{UseSemantic: false})
		sem.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
		assert.False(t, res.SemanticInvoked)
	})

	t.Run("confident locally", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{DocumentKnowledge: 0.7})
		sem := newMockMatcher(LevelSemantic)

		res := newTestEngine(t, kw, sem).Classify(context.Background(), "q", Options{UseSemantic: true})
		sem.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
		assert.False(t, res.SemanticInvoked)
	})

	t.Run("ambiguous", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{FacultyLookup: 0.5})
		sem := newMockMatcher(LevelSemantic)
		sem.On("Match", mock.Anything, "q").Return(Signal{DocumentKnowledge: 0.9}).Once()

		res := newTestEngine(t, sem, kw).Classify(context.Background(), "q", Options{UseSemantic: true})
		sem.AssertExpectations(t)
		assert.True(t, res.SemanticInvoked)
		assert.Equal(t, DocumentKnowledge, res.Primary.Intent)
		assert.Equal(t, []Level{LevelSemantic}, res.Provenance)
		assert.True(t, res.MultiIntent)
	})

	t.Run("semantic failure keeps local result", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{FacultyLookup: 0.65})
		sem := newMockMatcher(LevelSemantic)
		sem.On("Match", mock.Anything, mock.Anything).Return(Signal{})

		res := newTestEngine(t, kw, sem).Classify(context.Background(), "q", Options{UseSemantic: true})
		assert.Equal(t, Score{Intent: FacultyLookup, Confidence: 0.65}, res.Primary)
		assert.False(t, res.NeedsFallback)
	})
}

func TestEngine_TieBreak(t *testing.T) {
	t.Run("matcher priority", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{SmallTalk: 0.8})
		st := newMockMatcher(LevelStatistical)
		st.On("Match", mock.Anything, mock.Anything).Return(Signal{ContactLookup: 0.8})

		res := newTestEngine(t, kw, st).Classify(context.Background(), "q", Options{})
		assert.Equal(t, SmallTalk, res.Primary.Intent)
		assert.Equal(t, ContactLookup, res.Scores[1].Intent)
	})

	t.Run("declaration order", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{FacultyLookup: 0.85, ContactLookup: 0.85})

		res := newTestEngine(t, kw).Classify(context.Background(), "q", Options{})
		assert.Equal(t, ContactLookup, res.Primary.Intent)
	})

	t.Run("shared provenance", func(t *testing.T) {
		kw := newMockMatcher(LevelKeyword)
		kw.On("Match", mock.Anything, mock.Anything).Return(Signal{LocationLookup: 0.8})
		st := newMockMatcher(LevelStatistical)
		st.On("Match", mock.Anything, mock.Anything).Return(Signal{LocationLookup: 0.8})

		res := newTestEngine(t, kw, st).Classify(context.Background(), "q", Options{})
		assert.Equal(t, []Level{LevelKeyword, LevelStatistical}, res.Provenance)
	})
}

func TestEngine_ScoresSortedAndClosedSet(t *testing.T) {
	kw, err := NewKeywordMatcher(DefaultKeywordRules())
	require.NoError(t, err)
	engine := newTestEngine(t, kw)

	queries := []string{
		"What is the phone number of Roy canteen?",
		"where is the library",
		"How is CGPA calculated",
		"hello!",
		"asdkjh qwe",
		"Dr. Sen cabin location and email",
	}
	for _, q := range queries {
		res := engine.Classify(context.Background(), q, Options{})
		assert.True(t, res.Primary.Intent.Valid(), q)
		assert.Equal(t, res.Primary, res.Scores[0], q)
		for i := 1; i < len(res.Scores); i++ {
			assert.GreaterOrEqual(t, res.Scores[i-1].Confidence, res.Scores[i].Confidence, q)
		}
	}
}

func TestEngine_Idempotent(t *testing.T) {
	kw, err := NewKeywordMatcher(DefaultKeywordRules())
	require.NoError(t, err)
	engine := newTestEngine(t, kw, NewStatisticalMatcher(testModel(t), nil))

	q := "Roy canteen phone and location"
	first := engine.Classify(context.Background(), q, Options{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.Classify(context.Background(), q, Options{}))
	}
}

func TestNewEngine_InvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.TrustThreshold = 1.2
	_, err := NewEngine(p, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trust_threshold")
}
