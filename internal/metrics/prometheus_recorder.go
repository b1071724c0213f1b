package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	runDuration      prom.Histogram
	stageResults     *prom.CounterVec
	runOutcome       *prom.CounterVec
	tokens           *prom.CounterVec
	cost             *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	queueDepth       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.tokens = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "generation_tokens_total",
			Help:      "Token usage by stage",
		}, []string{"stage"})
		pr.cost = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "generation_cost_usd_total",
			Help:      "Accumulated generation cost in USD by stage",
		}, []string{"stage"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "publish_retries_total",
			Help:      "Publish retry attempts by platform",
		}, []string{"platform"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "publish_retry_exhausted_total",
			Help:      "Queue entries abandoned after exhausting retries",
		}, []string{"platform"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogsmith",
			Name:      "publishing_queue_depth",
			Help:      "Pending publishing queue entries observed at the last drain",
		})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcome,
			pr.tokens, pr.cost, pr.retries, pr.retriesExhausted, pr.queueDepth)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	pr.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	pr.runDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	pr.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (pr *PrometheusRecorder) IncRunOutcome(outcome string) {
	pr.runOutcome.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) AddTokens(stage string, n int) {
	pr.tokens.WithLabelValues(stage).Add(float64(n))
}

func (pr *PrometheusRecorder) AddCost(stage string, usd float64) {
	pr.cost.WithLabelValues(stage).Add(usd)
}

func (pr *PrometheusRecorder) IncPublishRetry(platform string) {
	pr.retries.WithLabelValues(platform).Inc()
}

func (pr *PrometheusRecorder) IncRetryExhausted(platform string) {
	pr.retriesExhausted.WithLabelValues(platform).Inc()
}

func (pr *PrometheusRecorder) SetQueueDepth(n int) {
	pr.queueDepth.Set(float64(n))
}
