package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/shopcrew/llm"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常工作）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中）
	StateOpen
	// StateHalfOpen 半开状态（试探性恢复）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值（触发熔断）
	Threshold int
	// ResetTimeout 熔断恢复等待时间（Open -> HalfOpen）
	ResetTimeout time.Duration
	// HalfOpenMaxCalls 半开状态下允许的试探请求数
	HalfOpenMaxCalls int
	// OnStateChange 状态变更回调，在锁外同步调用
	OnStateChange func(from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker 按连续失败次数熔断上游调用
type Breaker struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	halfOpenUsed int
}

// Option 调整 Breaker
type Option func(*Breaker)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New 创建熔断器，非法配置项回退到默认值
func New(config Config, logger *zap.Logger, opts ...Option) *Breaker {
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = def.ResetTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{
		config: config,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		now:    time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do 在熔断器保护下执行 fn。熔断打开时直接返回 ErrProviderUnavailable。
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	b.release(classify(ctx, err))
	return err
}

// outcome 一次调用对熔断器的影响
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	// outcomeNeutral 上游未给出有效结论，不改变状态与计数
	outcomeNeutral
)

// classify 客户端错误与调用方取消为 neutral
func classify(ctx context.Context, err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return outcomeNeutral
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Code {
		case llm.ErrInvalidRequest, llm.ErrUnauthorized, llm.ErrForbidden,
			llm.ErrQuotaExceeded, llm.ErrContentFiltered:
			return outcomeNeutral
		}
	}
	return outcomeFailure
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	var from, to State
	changed := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.ResetTimeout {
			b.mu.Unlock()
			return openError()
		}
		from, to, changed = b.transition(StateHalfOpen)
		b.halfOpenUsed = 1
	case StateHalfOpen:
		if b.halfOpenUsed >= b.config.HalfOpenMaxCalls {
			b.mu.Unlock()
			return openError()
		}
		b.halfOpenUsed++
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, to)
	}
	return nil
}

func (b *Breaker) release(result outcome) {
	b.mu.Lock()
	var from, to State
	changed := false

	switch result {
	case outcomeNeutral:
		// 归还半开试探名额
		if b.state == StateHalfOpen && b.halfOpenUsed > 0 {
			b.halfOpenUsed--
		}
	case outcomeFailure:
		b.failures++
		switch {
		case b.state == StateHalfOpen:
			from, to, changed = b.transition(StateOpen)
		case b.state == StateClosed && b.failures >= b.config.Threshold:
			from, to, changed = b.transition(StateOpen)
		}
		if changed {
			b.openedAt = b.now()
		}
	default:
		b.failures = 0
		if b.state == StateHalfOpen {
			from, to, changed = b.transition(StateClosed)
		}
	}
	failures := b.failures
	b.mu.Unlock()

	if changed {
		b.logger.Warn("circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Int("consecutive_failures", failures))
		b.notify(from, to)
	}
}

// transition 需持有锁
func (b *Breaker) transition(to State) (State, State, bool) {
	from := b.state
	b.state = to
	if to != StateHalfOpen {
		b.halfOpenUsed = 0
	}
	return from, to, from != to
}

func (b *Breaker) notify(from, to State) {
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}

// State 返回当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 手动恢复到关闭状态
func (b *Breaker) Reset() {
	b.mu.Lock()
	from, to, changed := b.transition(StateClosed)
	b.failures = 0
	b.mu.Unlock()
	if changed {
		b.notify(from, to)
	}
}

func openError() error {
	return &llm.Error{
		Code:    llm.ErrProviderUnavailable,
		Message: "circuit breaker is open",
	}
}
