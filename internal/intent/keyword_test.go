package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

func defaultKeywordMatcher(t *testing.T) *KeywordMatcher {
	t.Helper()
	m, err := NewKeywordMatcher(DefaultKeywordRules())
	require.NoError(t, err)
	return m
}

func TestKeywordMatcher_Match(t *testing.T) {
	m := defaultKeywordMatcher(t)
	ctx := context.Background()

	cases := []struct {
		query string
		want  Signal
	}{
		{"What is the phone number of Roy canteen?", Signal{ContactLookup: 0.85}},
		{"Roy canteen phone and location", Signal{ContactLookup: 0.85, LocationLookup: 0.80}},
		{"How is CGPA calculated?", Signal{DocumentKnowledge: 0.90}},
		{"Hello!", Signal{SmallTalk: 0.90}},
		{"what's the weather today", Signal{Fallback: 0.60}},
		{"Where is Dr. Sen's cabin", Signal{LocationLookup: 0.80, FacultyLookup: 0.85}},
		{"asdf qwerty", Signal{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Match(ctx, tc.query))
		})
	}
}

func TestKeywordMatcher_NotCumulative(t *testing.T) {
	m := defaultKeywordMatcher(t)

	out := m.Match(context.Background(), "phone contact email mobile helpline call")
	assert.Equal(t, Signal{ContactLookup: 0.85}, out)
}

func TestKeywordMatcher_TokenBoundaries(t *testing.T) {
	m := defaultKeywordMatcher(t)

	// "this" 不应命中 "hi"，"ragged" 不应命中任何规则
	assert.Empty(t, m.Match(context.Background(), "this ragged shirt"))
}

func TestNewKeywordMatcher_Invalid(t *testing.T) {
	cases := map[string][]KeywordRule{
		"empty":          nil,
		"unknown intent": {{Intent: "parking", Confidence: 0.5, Phrases: []string{"parking"}}},
		"confidence":     {{Intent: SmallTalk, Confidence: 1.5, Phrases: []string{"hi"}}},
		"no phrases":     {{Intent: SmallTalk, Confidence: 0.5, Phrases: []string{"  ", "!!"}}},
	}
	for name, rules := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewKeywordMatcher(rules)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigurationError(err))
		})
	}
}

func TestParseKeywordRules(t *testing.T) {
	content := `
rules:
  - intent: db_location
    confidence: 0.75
    phrases: ["parking lot", "gate"]
  - intent: small_talk
    confidence: 0.9
    phrases: [namaste]
`
	rules, err := ParseKeywordRules([]byte(content))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, LocationLookup, rules[0].Intent)

	m, err := NewKeywordMatcher(rules)
	require.NoError(t, err)
	assert.Equal(t, Signal{LocationLookup: 0.75}, m.Match(context.Background(), "Which gate is open?"))
	assert.Equal(t, Signal{SmallTalk: 0.9}, m.Match(context.Background(), "Namaste"))

	_, err = ParseKeywordRules([]byte("rules: [unterminated"))
	assert.True(t, apperrors.IsConfigurationError(err))
}
