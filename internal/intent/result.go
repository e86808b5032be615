package intent

import "math"

// Level 匹配器层级，数值越小优先级越高
type Level int

const (
	LevelKeyword Level = iota
	LevelStatistical
	LevelSemantic
)

func (l Level) String() string {
	switch l {
	case LevelKeyword:
		return "keyword"
	case LevelStatistical:
		return "statistical"
	case LevelSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// MarshalText 序列化为层级名称
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Expensive 需要外部调用的层级只在本地信号不确定且调用方允许时执行
func (l Level) Expensive() bool {
	return l == LevelSemantic
}

// Score 意图与置信度
type Score struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Result 单次查询的分类结果，按值传递，构造后不再修改
type Result struct {
	Primary         Score   `json:"primary"`
	Scores          []Score `json:"scores"`
	MultiIntent     bool    `json:"multi_intent"`
	CoActive        []Score `json:"co_active,omitempty"`
	NeedsFallback   bool    `json:"needs_fallback"`
	Provenance      []Level `json:"provenance,omitempty"`
	SemanticInvoked bool    `json:"semantic_invoked"`
}

// ConfidenceOf 返回指定意图的融合置信度
func (r Result) ConfidenceOf(in Intent) float64 {
	for _, s := range r.Scores {
		if s.Intent == in {
			return s.Confidence
		}
	}
	return 0
}

// Signal 单个匹配器的输出，空表示不提供信号
type Signal map[Intent]float64

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
