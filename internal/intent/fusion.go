package intent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/logger"
	"github.com/aihub/campus-companion/internal/metrics"
)

// Policy 融合阈值
type Policy struct {
	// 主意图置信度低于该值时才考虑语义仲裁
	AmbiguityThreshold float64
	// 非主意图达到该值即视为同时激活
	MultiIntentThreshold float64
	// 主意图低于该值交给兜底回复，等于该值视为可信
	TrustThreshold float64
}

// DefaultPolicy 默认阈值
func DefaultPolicy() Policy {
	return Policy{
		AmbiguityThreshold:   0.7,
		MultiIntentThreshold: 0.25,
		TrustThreshold:       0.6,
	}
}

// Validate 阈值必须位于 [0,1]
func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"ambiguity_threshold":    p.AmbiguityThreshold,
		"multi_intent_threshold": p.MultiIntentThreshold,
		"trust_threshold":        p.TrustThreshold,
	} {
		if v < 0 || v > 1 {
			return apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration,
				fmt.Sprintf("policy %s=%.2f outside [0,1]", name, v))
		}
	}
	return nil
}

// Options 单次分类选项
type Options struct {
	UseSemantic bool
}

// Engine 级联融合引擎。匹配器按层级优先级依次执行，昂贵层级受门控。
type Engine struct {
	matchers []Matcher
	policy   Policy
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewEngine matchers 会按层级稳定排序
func NewEngine(policy Policy, matchers []Matcher, log *zap.Logger, m *metrics.Collector) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	ordered := make([]Matcher, 0, len(matchers))
	for _, matcher := range matchers {
		if matcher != nil {
			ordered = append(ordered, matcher)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Level() < ordered[j].Level()
	})

	return &Engine{
		matchers: ordered,
		policy:   policy,
		logger:   logger.OrNop(log),
		metrics:  m,
	}, nil
}

// fusion 单次查询的合并状态
type fusion struct {
	merged     map[Intent]float64
	provenance map[Intent][]Level
}

// fold 按意图取最大值；与当前最大值相等时追加来源层级
func (f *fusion) fold(level Level, signal Signal) {
	for in, conf := range signal {
		if !in.Valid() {
			continue
		}
		conf = clamp01(conf)
		if conf <= 0 {
			continue
		}
		current, seen := f.merged[in]
		switch {
		case !seen || conf > current:
			f.merged[in] = conf
			f.provenance[in] = []Level{level}
		case conf == current:
			f.provenance[in] = append(f.provenance[in], level)
		}
	}
}

// rank 全部已声明意图按置信度降序；平分时比较产生该分数的最高优先级层级，再比较声明顺序
func (f *fusion) rank() []Score {
	scores := make([]Score, 0, len(declared))
	for _, in := range declared {
		scores = append(scores, Score{Intent: in, Confidence: f.merged[in]})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		la, lb := f.bestLevel(a.Intent), f.bestLevel(b.Intent)
		if la != lb {
			return la < lb
		}
		return a.Intent.order() < b.Intent.order()
	})
	return scores
}

func (f *fusion) bestLevel(in Intent) Level {
	levels := f.provenance[in]
	if len(levels) == 0 {
		return Level(1 << 30)
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l < best {
			best = l
		}
	}
	return best
}

// Classify 对单条查询执行级联分类，不返回错误
func (e *Engine) Classify(ctx context.Context, text string, opts Options) Result {
	if strings.TrimSpace(text) == "" {
		res := emptyQueryResult()
		e.metrics.ObserveClassification(string(res.Primary.Intent), true, false)
		return res
	}

	f := &fusion{
		merged:     make(map[Intent]float64, len(declared)),
		provenance: make(map[Intent][]Level, len(declared)),
	}

	semanticInvoked := false
	for _, m := range e.matchers {
		level := m.Level()
		if level.Expensive() {
			if !opts.UseSemantic {
				continue
			}
			if top := f.rank()[0]; top.Confidence >= e.policy.AmbiguityThreshold {
				continue
			}
			semanticInvoked = true
		}
		f.fold(level, m.Match(ctx, text))
	}

	res := e.decide(f)
	res.SemanticInvoked = semanticInvoked

	e.metrics.ObserveClassification(string(res.Primary.Intent), res.NeedsFallback, res.MultiIntent)
	e.logger.Debug("query classified",
		zap.String("intent", string(res.Primary.Intent)),
		zap.Float64("confidence", res.Primary.Confidence),
		zap.Bool("multi_intent", res.MultiIntent),
		zap.Bool("needs_fallback", res.NeedsFallback),
		zap.Bool("semantic", semanticInvoked))

	return res
}

// decide 从合并分数得出主意图、多意图和兜底标志
func (e *Engine) decide(f *fusion) Result {
	scores := f.rank()

	if scores[0].Confidence == 0 {
		// 无任何信号：兜底意图置顶
		reordered := make([]Score, 0, len(scores))
		reordered = append(reordered, Score{Intent: Fallback})
		for _, s := range scores {
			if s.Intent != Fallback {
				reordered = append(reordered, s)
			}
		}
		return Result{
			Primary:       reordered[0],
			Scores:        reordered,
			NeedsFallback: true,
		}
	}

	primary := scores[0]
	var coActive []Score
	for _, s := range scores[1:] {
		if s.Confidence >= e.policy.MultiIntentThreshold && s.Confidence > 0 {
			coActive = append(coActive, s)
		}
	}

	provenance := make([]Level, len(f.provenance[primary.Intent]))
	copy(provenance, f.provenance[primary.Intent])

	return Result{
		Primary:       primary,
		Scores:        scores,
		MultiIntent:   len(coActive) > 0,
		CoActive:      coActive,
		NeedsFallback: primary.Confidence < e.policy.TrustThreshold || primary.Intent == Fallback,
		Provenance:    provenance,
	}
}

// emptyQueryResult 空查询直接走兜底，不调用任何匹配器
func emptyQueryResult() Result {
	scores := make([]Score, 0, len(declared))
	scores = append(scores, Score{Intent: Fallback, Confidence: 1.0})
	for _, in := range declared {
		if in != Fallback {
			scores = append(scores, Score{Intent: in})
		}
	}
	return Result{
		Primary:       scores[0],
		Scores:        scores,
		NeedsFallback: true,
	}
}
