package routing

import "github.com/aihub/campus-companion/internal/intent"

// Call 一次数据处理器调用
type Call struct {
	Intent     intent.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
}

// DispatchPlan 分类结果到处理器调用的映射。
// Fallback 为 true 时不调用任何数据处理器。
type DispatchPlan struct {
	Query          string        `json:"query"`
	Primary        *Call         `json:"primary,omitempty"`
	Secondary      []Call        `json:"secondary,omitempty"`
	Fallback       bool          `json:"fallback"`
	Classification intent.Result `json:"classification"`
}

// Route 纯函数：needs-fallback 只走兜底；多意图时为每个共现意图追加次要调用
func Route(result intent.Result, query string) DispatchPlan {
	plan := DispatchPlan{Query: query, Classification: result}
	if result.NeedsFallback || result.Primary.Intent == intent.Fallback {
		plan.Fallback = true
		return plan
	}

	plan.Primary = &Call{Intent: result.Primary.Intent, Confidence: result.Primary.Confidence}
	if !result.MultiIntent {
		return plan
	}
	for _, s := range result.CoActive {
		if s.Intent == result.Primary.Intent || s.Intent == intent.Fallback {
			continue
		}
		plan.Secondary = append(plan.Secondary, Call{Intent: s.Intent, Confidence: s.Confidence})
	}
	return plan
}
