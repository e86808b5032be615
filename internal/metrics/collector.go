package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 分类、检索与路由的 Prometheus 指标。
// 所有方法对 nil 接收者安全，组件可以不注入指标。
type Collector struct {
	classifications  *prometheus.CounterVec
	semanticCalls    *prometheus.CounterVec
	retrievalLatency *prometheus.HistogramVec
	retrievalResults prometheus.Histogram
	handlerOutcomes  *prometheus.CounterVec
	inFlight         prometheus.Gauge
}

// NewCollector 在给定注册器上注册指标，测试中传入 prometheus.NewRegistry()
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "classifications_total",
				Help:      "Total number of classified queries by primary intent",
			},
			[]string{"intent", "fallback", "multi_intent"},
		),
		semanticCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "semantic_calls_total",
				Help:      "Semantic arbitration calls by outcome",
			},
			[]string{"outcome"}, // ok, error, timeout, unparsable, skipped
		),
		retrievalLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campus",
				Name:      "retrieval_duration_seconds",
				Help:      "Duration of knowledge retrieval",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		retrievalResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "campus",
				Name:      "retrieval_results",
				Help:      "Number of passages returned per retrieval",
				Buckets:   []float64{0, 1, 2, 3, 5, 10},
			},
		),
		handlerOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "handler_outcomes_total",
				Help:      "Downstream handler outcomes by intent",
			},
			[]string{"intent", "outcome"}, // hit, miss, error
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "campus",
				Name:      "queries_in_flight",
				Help:      "Queries currently being classified and routed",
			},
		),
	}
}

// ObserveClassification 记录一次分类结果
func (c *Collector) ObserveClassification(intent string, needsFallback, multiIntent bool) {
	if c == nil {
		return
	}
	c.classifications.WithLabelValues(intent, strconv.FormatBool(needsFallback), strconv.FormatBool(multiIntent)).Inc()
}

// ObserveSemantic 记录语义仲裁调用结果
func (c *Collector) ObserveSemantic(outcome string) {
	if c == nil {
		return
	}
	c.semanticCalls.WithLabelValues(outcome).Inc()
}

// ObserveRetrieval 记录检索耗时与结果数
func (c *Collector) ObserveRetrieval(elapsed time.Duration, results int, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.retrievalLatency.WithLabelValues(status).Observe(elapsed.Seconds())
	if err == nil {
		c.retrievalResults.Observe(float64(results))
	}
}

// ObserveHandler 记录下游处理器结果
func (c *Collector) ObserveHandler(intent, outcome string) {
	if c == nil {
		return
	}
	c.handlerOutcomes.WithLabelValues(intent, outcome).Inc()
}

// TrackInFlight 并发查询计数，返回释放函数
func (c *Collector) TrackInFlight() func() {
	if c == nil {
		return func() {}
	}
	c.inFlight.Inc()
	return c.inFlight.Dec
}
