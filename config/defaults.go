// =============================================================================
// 📦 shopcrew 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultQuery 是未指定查询时使用的示例查询
const DefaultQuery = "lightweight running shoes with good cushioning for marathon training"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Crew:      DefaultCrewConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "azure",
		APIVersion:     "2024-06-01",
		Timeout:        2 * time.Minute,
		Temperature:    0.7,
		RateLimitRPS:   0,
		RateLimitBurst: 1,
		Retry: RetryConfig{
			MaxRetries:   2,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Threshold:    5,
			ResetTimeout: time.Minute,
		},
	}
}

// DefaultCrewConfig 返回默认团队配置
func DefaultCrewConfig() CrewConfig {
	return CrewConfig{
		Process:             "hierarchical",
		MaxRetries:          2,
		BaseDelay:           time.Second,
		FallbackType:        "product_search",
		GuardrailMaxRetries: 2,
		MaxQueryLength:      2000,
		Query:               DefaultQuery,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
		File: LogFileConfig{
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "shopcrew",
		SampleRate:   0.1,
		Insecure:     true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "shopcrew",
	}
}
