package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/llm/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultMaxRetries 是未配置时的最大执行次数
const DefaultMaxRetries = 2

// maxBackoffCap 是 2^62ns，可在 float64 与 time.Duration 之间精确转换
const maxBackoffCap = time.Duration(1 << 62)

// maxBackoff 返回 maxRetries 次执行中最长的等待 base*2^(maxRetries-2)
func maxBackoff(base time.Duration, maxRetries int) time.Duration {
	d := base
	for i := 2; i < maxRetries; i++ {
		if d >= maxBackoffCap/2 {
			return maxBackoffCap
		}
		d *= 2
	}
	return d
}

// DefaultBaseDelay 是第一次失败后的等待时间，之后每次翻倍
const DefaultBaseDelay = time.Second

// Runner 是可被重试执行的团队
type Runner interface {
	Kickoff(ctx context.Context, inputs map[string]string) (*crews.CrewOutput, error)
}

// Recorder 记录执行与兜底指标
type Recorder interface {
	RecordExecutionAttempt(status string)
	RecordFallback(fallbackType string)
}

// Outcome 是 ExecuteWithFallback 的结果，Output 与 Fallback 二者恰有其一
type Outcome struct {
	Output       *crews.CrewOutput
	Fallback     *Response
	FallbackType string
	Attempts     int
	// Err 是最后一次失败的错误，成功时为 nil
	Err error
}

// Succeeded 判断是否拿到了团队输出
func (o *Outcome) Succeeded() bool { return o.Output != nil }

type options struct {
	maxRetries   int
	fallbackType string
	baseDelay    time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	out          io.Writer
	logger       *zap.Logger
	recorder     Recorder
}

// Option 调整 ExecuteWithFallback
type Option func(*options)

// WithMaxRetries 设置最大执行次数，<= 0 时取 DefaultMaxRetries。
// 第 i 次失败后等待 baseDelay*2^i，单次等待上限为 maxBackoffCap（约 146 年）。
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithFallbackType 设置兜底类型
func WithFallbackType(t string) Option {
	return func(o *options) { o.fallbackType = t }
}

// WithBaseDelay 设置第一次重试前的等待时间
func WithBaseDelay(d time.Duration) Option {
	return func(o *options) { o.baseDelay = d }
}

// WithSleep 替换等待函数，测试中用于跳过真实等待
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// WithOutput 设置控制台横幅的输出目标，默认不输出
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// ExecuteWithFallback 执行 runner，失败后按 1s、2s、4s... 退避重试，
// 最多执行 maxRetries 次；全部失败时返回兜底响应而不是错误。
// 等待期间 context 结束会立即返回兜底响应。
func ExecuteWithFallback(ctx context.Context, runner Runner, inputs map[string]string, opts ...Option) *Outcome {
	o := options{
		maxRetries:   DefaultMaxRetries,
		fallbackType: TypeGeneral,
		baseDelay:    DefaultBaseDelay,
		out:          io.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries <= 0 {
		o.maxRetries = DefaultMaxRetries
	}
	if o.baseDelay <= 0 {
		o.baseDelay = DefaultBaseDelay
	}
	if o.out == nil {
		o.out = io.Discard
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	logger := o.logger.With(zap.String("component", "fallback"), zap.String("fallback_type", o.fallbackType))

	ctx, span := otel.Tracer("github.com/BaSui01/shopcrew/agent/fallback").Start(ctx, "fallback.execute")
	defer span.End()

	if len(inputs) == 0 {
		inputs = nil
	}
	attempts := 0
	policy := &retry.RetryPolicy{
		MaxRetries:   o.maxRetries - 1,
		InitialDelay: o.baseDelay,
		MaxDelay:     maxBackoff(o.baseDelay, o.maxRetries),
		Multiplier:   2.0,
		Jitter:       false,
		OnRetry: func(_ int, _ error, delay time.Duration) {
			fmt.Fprintf(o.out, "Retrying in %g seconds...\n", delay.Seconds())
		},
	}
	retryOpts := []retry.Option{}
	if o.sleep != nil {
		retryOpts = append(retryOpts, retry.WithSleep(o.sleep))
	}
	retryer := retry.NewBackoffRetryer(policy, logger, retryOpts...)

	output, err := retry.DoWithResultTyped(retryer, ctx, func() (*crews.CrewOutput, error) {
		attempts++
		printBanner(o.out, "=", fmt.Sprintf("Execution attempt %d of %d", attempts, o.maxRetries))
		out, err := runner.Kickoff(ctx, inputs)
		if err == nil && out == nil {
			err = errors.New("crew returned no output")
		}
		if err != nil {
			printBanner(o.out, "!", fmt.Sprintf("Attempt %d failed: %s: %v", attempts, ErrorKind(err), err))
			logger.Warn("execution attempt failed",
				zap.Int("attempt", attempts),
				zap.Int("max_retries", o.maxRetries),
				zap.String("error_type", ErrorKind(err)),
				zap.Error(err))
			o.record("failure")
			return nil, err
		}

		printBanner(o.out, "=", "Execution completed successfully!")
		o.record("success")
		return out, nil
	})

	span.SetAttributes(attribute.Int("fallback.attempts", attempts))
	if err == nil {
		logger.Info("execution succeeded", zap.Int("attempts", attempts))
		return &Outcome{Output: output, Attempts: attempts}
	}

	lastErr := lastError(err)
	if canceled, ok := err.(*retry.CanceledError); ok {
		logger.Warn("backoff interrupted by context", zap.Error(canceled.Cause))
	}
	fmt.Fprintf(o.out, "\n%s\n", strings.Repeat("#", bannerWidth))
	fmt.Fprintln(o.out, "All retry attempts exhausted. Returning fallback response.")
	fmt.Fprintf(o.out, "Last error: %v\n", lastErr)
	fmt.Fprintf(o.out, "%s\n\n", strings.Repeat("#", bannerWidth))

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "fallback activated")
	span.SetAttributes(attribute.Bool("fallback.activated", true))
	logger.Error("all attempts failed, returning fallback",
		zap.Int("attempts", attempts),
		zap.String("error_type", ErrorKind(lastErr)),
		zap.Error(lastErr))
	if o.recorder != nil {
		o.recorder.RecordFallback(o.fallbackType)
	}

	return &Outcome{
		Fallback:     GetFallbackResponse(o.fallbackType, lastErr),
		FallbackType: o.fallbackType,
		Attempts:     attempts,
		Err:          lastErr,
	}
}

func (o *options) record(status string) {
	if o.recorder != nil {
		o.recorder.RecordExecutionAttempt(status)
	}
}

// lastError 取出重试器包装下的最后一次执行错误
func lastError(err error) error {
	switch e := err.(type) {
	case *retry.ExhaustedError:
		if e.Last != nil {
			return e.Last
		}
	case *retry.CanceledError:
		if e.Last != nil {
			return e.Last
		}
	}
	return err
}
