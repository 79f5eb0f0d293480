package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/shopcrew/config"
	"github.com/BaSui01/shopcrew/internal/logging"
	"github.com/BaSui01/shopcrew/internal/metrics"
	"github.com/BaSui01/shopcrew/internal/telemetry"
	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/circuitbreaker"
	"github.com/BaSui01/shopcrew/llm/providers"
	"github.com/BaSui01/shopcrew/llm/providers/azure"
	"github.com/BaSui01/shopcrew/llm/providers/openai"
	"github.com/BaSui01/shopcrew/llm/tokenizer"
)

// app 持有一次命令执行所需的运行时组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	telemetry *telemetry.Providers
	provider  llm.Provider
	// tokenizer 为空时由 agent 按模型选择
	tokenizer tokenizer.Tokenizer

	syncLog func()
}

// loadConfig 加载配置，override 在校验之前应用命令行参数
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.NewLoader().WithConfigPath(path).Load()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp 按配置初始化日志、遥测、指标与 Provider 链
func newApp(cfg *config.Config) (*app, error) {
	logger, syncLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, syncLog: syncLog}

	a.telemetry, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	var recorder llm.Recorder
	if a.collector != nil {
		recorder = a.collector
	}
	a.provider, err = buildProvider(cfg.LLM, recorder, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close 写出指标、关闭遥测并刷新日志
func (a *app) close() {
	if a.collector != nil && a.cfg.Metrics.TextfilePath != "" {
		if err := a.collector.WriteToTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			a.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
		cancel()
	}
	if a.syncLog != nil {
		a.syncLog()
	}
}

// buildProvider 组装 Provider 链：厂商实现 → 限流 → 重试 → 熔断 → 埋点
func buildProvider(cfg config.LLMConfig, recorder llm.Recorder, logger *zap.Logger) (llm.Provider, error) {
	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	var p llm.Provider
	switch cfg.Provider {
	case "azure":
		p = azure.NewAzureProvider(providers.AzureOpenAIConfig{
			BaseProviderConfig: base,
			APIVersion:         cfg.APIVersion,
		}, logger)
	case "openai":
		p = openai.NewOpenAIProvider(providers.OpenAIConfig{
			BaseProviderConfig: base,
			Organization:       cfg.Organization,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	p = providers.NewRateLimitedProvider(p, cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	if cfg.Retry.MaxRetries > 0 {
		p = providers.NewRetryableProvider(p, providers.RetryConfig{
			MaxRetries:    cfg.Retry.MaxRetries,
			InitialDelay:  cfg.Retry.InitialDelay,
			MaxDelay:      cfg.Retry.MaxDelay,
			BackoffFactor: cfg.Retry.Multiplier,
			RetryableOnly: true,
		}, logger)
	}

	if cfg.CircuitBreaker.Threshold > 0 {
		p = circuitbreaker.NewProvider(p, circuitbreaker.New(circuitbreaker.Config{
			Threshold:    cfg.CircuitBreaker.Threshold,
			ResetTimeout: cfg.CircuitBreaker.ResetTimeout,
		}, logger))
	}

	return llm.NewInstrumentedProvider(p, recorder, logger), nil
}
