package circuitbreaker

import (
	"context"

	"github.com/BaSui01/shopcrew/llm"
)

// Provider 在熔断器保护下调用 inner。HealthCheck 不经过熔断器。
type Provider struct {
	inner   llm.Provider
	breaker *Breaker
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 用 breaker 包装 inner
func NewProvider(inner llm.Provider, breaker *Breaker) *Provider {
	return &Provider{inner: inner, breaker: breaker}
}

func (p *Provider) Name() string { return p.inner.Name() }

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var resp *llm.ChatResponse
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.inner.Completion(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Breaker 返回底层熔断器
func (p *Provider) Breaker() *Breaker { return p.breaker }
