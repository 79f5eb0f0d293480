package providers

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/retry"
	"go.uber.org/zap"
)

// RetryConfig holds retry configuration for a provider wrapper.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`    // Maximum retry attempts, default 3
	InitialDelay  time.Duration `json:"initial_delay"`  // Initial backoff delay, default 1s
	MaxDelay      time.Duration `json:"max_delay"`      // Maximum backoff delay, default 30s
	BackoffFactor float64       `json:"backoff_factor"` // Exponential backoff factor, default 2.0
	RetryableOnly bool          `json:"retryable_only"` // Only retry errors marked Retryable
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		RetryableOnly: true,
	}
}

// RetryableProvider wraps an llm.Provider with exponential-backoff retry logic.
type RetryableProvider struct {
	inner   llm.Provider
	config  RetryConfig
	retryer retry.Retryer
}

// NewRetryableProvider creates a retrying wrapper around the given provider.
func NewRetryableProvider(inner llm.Provider, config RetryConfig, logger *zap.Logger, opts ...retry.Option) *RetryableProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "retry_provider"), zap.String("provider", inner.Name()))
	policy := &retry.RetryPolicy{
		MaxRetries:   config.MaxRetries,
		InitialDelay: config.InitialDelay,
		MaxDelay:     config.MaxDelay,
		Multiplier:   config.BackoffFactor,
		Jitter:       true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn("completion failed, will retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}
	return &RetryableProvider{
		inner:   inner,
		config:  config,
		retryer: retry.NewBackoffRetryer(policy, logger, opts...),
	}
}

// Compile-time interface check.
var _ llm.Provider = (*RetryableProvider)(nil)

func (p *RetryableProvider) Name() string { return p.inner.Name() }

func (p *RetryableProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion performs a chat completion with retry on transient errors.
// Non-retryable errors are returned immediately.
func (p *RetryableProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return retry.DoWithResultTyped(p.retryer, ctx, func() (*llm.ChatResponse, error) {
		resp, err := p.inner.Completion(ctx, req)
		if err != nil && p.config.RetryableOnly && !isRetryable(err) {
			return nil, retry.Permanent(err)
		}
		return resp, err
	})
}

func isRetryable(err error) bool {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	// 非 llm.Error（如网络错误）默认可重试
	return true
}
