package intent

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

// KeywordRule 一条触发规则：命中任一短语即给出固定置信度
type KeywordRule struct {
	Intent     Intent   `yaml:"intent"`
	Confidence float64  `yaml:"confidence"`
	Phrases    []string `yaml:"phrases"`
}

type keywordRuleFile struct {
	Rules []KeywordRule `yaml:"rules"`
}

type compiledRule struct {
	intent     Intent
	confidence float64
	phrases    []string
}

// KeywordMatcher 词法规则匹配器
type KeywordMatcher struct {
	rules []compiledRule
}

// DefaultKeywordRules 内置规则表
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Intent:     ContactLookup,
			Confidence: 0.85,
			Phrases: []string{
				"phone", "phone number", "contact", "contact number", "mobile",
				"email", "e mail", "call", "helpline", "extension",
			},
		},
		{
			Intent:     LocationLookup,
			Confidence: 0.80,
			Phrases: []string{
				"where is", "where are", "where can i find", "location", "located",
				"address", "directions", "how to get to", "how do i get to",
				"which building", "which floor", "room number",
			},
		},
		{
			Intent:     FacultyLookup,
			Confidence: 0.85,
			Phrases: []string{
				"professor", "prof", "faculty", "hod", "head of department",
				"lecturer", "teacher", "dean", "dr", "instructor",
			},
		},
		{
			Intent:     DocumentKnowledge,
			Confidence: 0.90,
			Phrases: []string{
				"cgpa", "sgpa", "gpa", "grading", "attendance", "syllabus", "exam",
				"examination", "regulation", "regulations", "rule", "rules", "policy",
				"fee", "fees", "scholarship", "how to apply", "how to calculate",
				"procedure", "eligibility", "admission",
			},
		},
		{
			Intent:     SmallTalk,
			Confidence: 0.90,
			Phrases: []string{
				"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
				"thanks", "thank you", "who are you", "how are you", "bye",
			},
		},
		{
			Intent:     Fallback,
			Confidence: 0.60,
			Phrases: []string{
				"weather", "movie", "movies", "cricket", "football", "joke",
				"stock", "bitcoin", "recipe",
			},
		},
	}
}

// ParseKeywordRules 解析 YAML 规则表，格式为 rules: [{intent, confidence, phrases}]
func ParseKeywordRules(data []byte) ([]KeywordRule, error) {
	var file keywordRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeInvalidRuleTable,
			"failed to parse keyword rules").WithCause(err)
	}
	return file.Rules, nil
}

// NewKeywordMatcher 校验并编译规则表
func NewKeywordMatcher(rules []KeywordRule) (*KeywordMatcher, error) {
	if len(rules) == 0 {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeInvalidRuleTable, "keyword rule table is empty")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if !rule.Intent.Valid() {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeInvalidRuleTable,
				fmt.Sprintf("rule %d: unknown intent %q", i, rule.Intent))
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeInvalidRuleTable,
				fmt.Sprintf("rule %d: confidence %.2f outside [0,1]", i, rule.Confidence))
		}

		phrases := make([]string, 0, len(rule.Phrases))
		for _, p := range rule.Phrases {
			if n := Normalize(p); n != "" {
				phrases = append(phrases, " "+n+" ")
			}
		}
		if len(phrases) == 0 {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeInvalidRuleTable,
				fmt.Sprintf("rule %d: no usable phrases", i))
		}
		compiled = append(compiled, compiledRule{intent: rule.Intent, confidence: rule.Confidence, phrases: phrases})
	}

	return &KeywordMatcher{rules: compiled}, nil
}

// Level 实现 Matcher
func (m *KeywordMatcher) Level() Level { return LevelKeyword }

// Match 命中短语按词边界判断，同一意图取规则置信度上限，不累加
func (m *KeywordMatcher) Match(_ context.Context, text string) Signal {
	normalized := Normalize(text)
	if normalized == "" {
		return Signal{}
	}
	padded := " " + normalized + " "

	out := Signal{}
	for _, rule := range m.rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(padded, phrase) {
				if rule.confidence > out[rule.intent] {
					out[rule.intent] = rule.confidence
				}
				break
			}
		}
	}
	return out
}
