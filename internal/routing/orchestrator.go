package routing

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/aihub/campus-companion/internal/audit"
	"github.com/aihub/campus-companion/internal/campus"
	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/logger"
	"github.com/aihub/campus-companion/internal/metrics"
)

// Classifier 意图分类，由 intent.Engine 实现
type Classifier interface {
	Classify(ctx context.Context, text string, opts intent.Options) intent.Result
}

// DataHandler 按意图查询结构化数据，未命中返回 nil
type DataHandler interface {
	Lookup(ctx context.Context, query string) (*campus.Record, error)
}

// FallbackResponder 兜底回复，不返回错误
type FallbackResponder interface {
	Respond(ctx context.Context, query string, result intent.Result) string
}

// Payload 返回给用户的内容
type Payload struct {
	Text           string           `json:"text"`
	Records        []*campus.Record `json:"records,omitempty"`
	Classification *intent.Result   `json:"classification,omitempty"`
}

// Answer 一次查询的最终回答
type Answer struct {
	Payload       Payload       `json:"payload"`
	Intent        intent.Intent `json:"intent"`
	Confidence    float64       `json:"confidence"`
	IsMultiIntent bool          `json:"is_multi_intent"`
	UsedFallback  bool          `json:"used_fallback"`
}

// Options 单次查询选项
type Options struct {
	UseSemantic bool
	// Diagnostics 为 true 时在 Payload 中附带分类结果
	Diagnostics bool
}

// Orchestrator 分类并路由到数据处理器
type Orchestrator struct {
	classifier Classifier
	handlers   map[intent.Intent]DataHandler
	fallback   FallbackResponder
	publisher  audit.Publisher
	sem        *semaphore.Weighted
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// OrchestratorOptions 可选依赖
type OrchestratorOptions struct {
	Publisher   audit.Publisher
	MaxInFlight int
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

// NewOrchestrator handlers 中缺失的意图在命中时走兜底
func NewOrchestrator(classifier Classifier, handlers map[intent.Intent]DataHandler, fallback FallbackResponder, opts OrchestratorOptions) (*Orchestrator, error) {
	if classifier == nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration, "classifier is required")
	}
	if fallback == nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration, "fallback responder is required")
	}
	for in := range handlers {
		if !in.Valid() || in == intent.Fallback {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration,
				fmt.Sprintf("no data handler can serve intent %q", in))
		}
	}

	limit := opts.MaxInFlight
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = audit.NoopPublisher{}
	}

	copied := make(map[intent.Intent]DataHandler, len(handlers))
	for k, v := range handlers {
		if v != nil {
			copied[k] = v
		}
	}

	return &Orchestrator{
		classifier: classifier,
		handlers:   copied,
		fallback:   fallback,
		publisher:  publisher,
		sem:        semaphore.NewWeighted(int64(limit)),
		logger:     logger.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}, nil
}

// ClassifyAndRoute 分类、执行调度计划并组装回答。
// 只有配置错误和调用方取消会返回 error，其余失败都落到兜底回复。
func (o *Orchestrator) ClassifyAndRoute(ctx context.Context, query string, opts Options) (Answer, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return Answer{}, err
	}
	defer o.sem.Release(1)
	defer o.metrics.TrackInFlight()()

	result := o.classifier.Classify(ctx, query, intent.Options{UseSemantic: opts.UseSemantic})
	plan := Route(result, query)

	answer, err := o.execute(ctx, plan)
	if err != nil {
		return Answer{}, err
	}
	if opts.Diagnostics {
		answer.Payload.Classification = &plan.Classification
	}

	if err := o.publisher.Publish(ctx, audit.NewEvent(query, result, answer.UsedFallback)); err != nil {
		o.logger.Warn("failed to publish audit event", zap.Error(err))
	}

	o.logger.Info("query routed",
		zap.String("intent", answer.Intent.String()),
		zap.Float64("confidence", answer.Confidence),
		zap.Bool("multi_intent", answer.IsMultiIntent),
		zap.Bool("used_fallback", answer.UsedFallback),
		zap.Bool("semantic_invoked", result.SemanticInvoked))
	return answer, nil
}

func (o *Orchestrator) execute(ctx context.Context, plan DispatchPlan) (Answer, error) {
	result := plan.Classification
	answer := Answer{
		Intent:        result.Primary.Intent,
		Confidence:    result.Primary.Confidence,
		IsMultiIntent: result.MultiIntent,
	}

	if plan.Fallback {
		return o.fallbackAnswer(ctx, plan, answer), nil
	}

	// 主意图未命中时次要意图的结果仍然返回，全部未命中才兜底
	calls := append([]Call{*plan.Primary}, plan.Secondary...)
	var records []*campus.Record
	for _, c := range calls {
		rec, err := o.call(ctx, c, plan.Query)
		if err != nil {
			return Answer{}, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return o.fallbackAnswer(ctx, plan, answer), nil
	}

	answer.Payload = Payload{Text: joinRecords(records), Records: records}
	return answer, nil
}

// call 处理器错误记日志后视为未命中，配置错误原样返回
func (o *Orchestrator) call(ctx context.Context, c Call, query string) (*campus.Record, error) {
	handler, ok := o.handlers[c.Intent]
	if !ok {
		o.metrics.ObserveHandler(c.Intent.String(), "unavailable")
		o.logger.Debug("no handler configured", zap.String("intent", c.Intent.String()))
		return nil, nil
	}

	rec, err := handler.Lookup(ctx, query)
	switch {
	case err != nil && apperrors.IsConfigurationError(err):
		o.metrics.ObserveHandler(c.Intent.String(), "error")
		return nil, err
	case err != nil:
		o.metrics.ObserveHandler(c.Intent.String(), "error")
		o.logger.Warn("data handler failed",
			zap.String("intent", c.Intent.String()),
			zap.Error(err))
		return nil, nil
	case rec == nil:
		o.metrics.ObserveHandler(c.Intent.String(), "miss")
		return nil, nil
	default:
		o.metrics.ObserveHandler(c.Intent.String(), "hit")
		return rec, nil
	}
}

func (o *Orchestrator) fallbackAnswer(ctx context.Context, plan DispatchPlan, answer Answer) Answer {
	answer.UsedFallback = true
	answer.Payload = Payload{Text: o.fallback.Respond(ctx, plan.Query, plan.Classification)}
	return answer
}

func joinRecords(records []*campus.Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n\n")
}
