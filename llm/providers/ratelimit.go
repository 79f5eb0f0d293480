package providers

import (
	"context"
	"net/http"

	"github.com/BaSui01/shopcrew/llm"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider 在调用上游前按令牌桶限流。
// Azure 部署按 RPM/TPM 计费限流，本地先排队比吃 429 更平滑。
type RateLimitedProvider struct {
	inner   llm.Provider
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ llm.Provider = (*RateLimitedProvider)(nil)

// NewRateLimitedProvider 创建限流包装。rps <= 0 时返回 inner 本身。
func NewRateLimitedProvider(inner llm.Provider, rps float64, burst int, logger *zap.Logger) llm.Provider {
	if rps <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With(zap.String("component", "rate_limiter"), zap.String("provider", inner.Name())),
	}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion 等待令牌后转发请求；context 结束时返回 ErrRateLimited。
func (p *RateLimitedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		p.logger.Debug("rate limiter wait aborted", zap.Error(err))
		return nil, &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    "local rate limit wait aborted: " + err.Error(),
			HTTPStatus: http.StatusTooManyRequests,
			Provider:   p.inner.Name(),
		}
	}
	return p.inner.Completion(ctx, req)
}
