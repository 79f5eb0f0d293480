package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Recorder 记录 LLM 调用指标。
type Recorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// InstrumentedProvider 为 Provider 增加 tracing、指标与日志。
type InstrumentedProvider struct {
	inner    Provider
	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

var _ Provider = (*InstrumentedProvider)(nil)

// NewInstrumentedProvider 包装 inner。recorder 可以为 nil。
func NewInstrumentedProvider(inner Provider, recorder Recorder, logger *zap.Logger) *InstrumentedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedProvider{
		inner:    inner,
		recorder: recorder,
		tracer:   otel.Tracer("github.com/BaSui01/shopcrew/llm"),
		logger:   logger.With(zap.String("component", "llm"), zap.String("provider", inner.Name())),
	}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion 调用底层 Provider 并记录耗时、token 与状态。
func (p *InstrumentedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, span := p.tracer.Start(ctx, "llm.completion",
		trace.WithAttributes(
			attribute.String("llm.provider", p.inner.Name()),
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.messages", len(req.Messages)),
		))
	defer span.End()

	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)
	duration := time.Since(start)

	model := req.Model
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.record(model, "error", duration, ChatUsage{})
		p.logger.Warn("completion failed",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	p.record(model, "success", duration, resp.Usage)
	p.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp, nil
}

func (p *InstrumentedProvider) record(model, status string, d time.Duration, usage ChatUsage) {
	if p.recorder == nil {
		return
	}
	p.recorder.RecordLLMRequest(p.inner.Name(), model, status, d, usage.PromptTokens, usage.CompletionTokens)
}
