// Package metrics defines observability hooks for pipeline runs.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultRetry   ResultLabel = "retry"
)

// Recorder defines observability hooks for run and stage metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. The NoopRecorder allows
// optional injection.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|partial|failed
	AddTokens(stage string, n int)
	AddCost(stage string, usd float64)
	IncPublishRetry(platform string)
	IncRetryExhausted(platform string)
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) AddTokens(string, int)                      {}
func (NoopRecorder) AddCost(string, float64)                    {}
func (NoopRecorder) IncPublishRetry(string)                     {}
func (NoopRecorder) IncRetryExhausted(string)                   {}
func (NoopRecorder) SetQueueDepth(int)                          {}
