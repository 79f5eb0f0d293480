// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 执行状态标签
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 同时实现 llm.Recorder、crews.Recorder 与 fallback.Recorder。
type Collector struct {
	registry *prometheus.Registry

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 团队执行指标
	executionAttempts  *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	guardrailFailures  *prometheus.CounterVec
	taskDuration       *prometheus.HistogramVec
	kickoffTokensTotal prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册在独立的 Registry 上
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"},
	)

	// 团队执行指标
	c.executionAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_execution_attempts_total",
			Help:      "Total number of crew kickoff attempts",
		},
		[]string{"status"},
	)

	c.fallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_fallbacks_total",
			Help:      "Total number of fallback responses returned",
		},
		[]string{"fallback_type"},
	)

	c.guardrailFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_guardrail_failures_total",
			Help:      "Total number of task outputs rejected by a guardrail",
		},
		[]string{"task_id"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crew_task_duration_seconds",
			Help:      "Crew task duration in seconds, guardrail retries included",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"task_id", "agent"},
	)

	c.kickoffTokensTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_tokens_used_total",
			Help:      "Total tokens reported by completed crew tasks",
		},
	)

	return c
}

// Registry 返回底层 Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 🎭 团队指标记录
// =============================================================================

// RecordExecutionAttempt 记录一次 kickoff 尝试
func (c *Collector) RecordExecutionAttempt(status string) {
	c.executionAttempts.WithLabelValues(status).Inc()
}

// RecordFallback 记录一次兜底响应
func (c *Collector) RecordFallback(fallbackType string) {
	c.fallbacksTotal.WithLabelValues(fallbackType).Inc()
}

// RecordGuardrailFailure 记录一次 guardrail 拒绝
func (c *Collector) RecordGuardrailFailure(taskID string) {
	c.guardrailFailures.WithLabelValues(taskID).Inc()
}

// RecordTask 记录一个已完成的任务
func (c *Collector) RecordTask(taskID, agent string, duration time.Duration, tokens int) {
	c.taskDuration.WithLabelValues(taskID, agent).Observe(duration.Seconds())
	if tokens > 0 {
		c.kickoffTokensTotal.Add(float64(tokens))
	}
}

// =============================================================================
// 💾 导出
// =============================================================================

// WriteToTextfile 以 node_exporter textfile 格式写出当前指标
func (c *Collector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
