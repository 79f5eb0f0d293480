// =============================================================================
// 📦 shopcrew 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SHOPCREW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → AZURE_OPENAI_* → SHOPCREW_* 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 shopcrew 的完整配置结构
type Config struct {
	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Crew 团队执行配置
	Crew CrewConfig `yaml:"crew" env:"CREW"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider: azure, openai
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL，Azure 下为资源端点
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称，Azure 下为部署名
	Model string `yaml:"model" env:"MODEL"`
	// Azure API 版本
	APIVersion string `yaml:"api_version" env:"API_VERSION"`
	// OpenAI 组织 ID（可选）
	Organization string `yaml:"organization" env:"ORGANIZATION"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 采样温度
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大输出 Token 数，0 表示由服务端决定
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 本地限流（每秒请求数），0 表示不限流
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 传输层重试
	Retry RetryConfig `yaml:"retry" env:"RETRY"`
	// 熔断
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" env:"CIRCUIT_BREAKER"`
}

// CircuitBreakerConfig 熔断配置，Threshold 为 0 表示不启用
type CircuitBreakerConfig struct {
	// 连续失败次数阈值
	Threshold int `yaml:"threshold" env:"THRESHOLD"`
	// 熔断后等待多久放行试探请求
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`
}

// RetryConfig 传输层重试配置（仅重试可重试的上游错误）
type RetryConfig struct {
	// 最大重试次数，0 表示不重试
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 初始退避
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	// 最大退避
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 退避倍数
	Multiplier float64 `yaml:"multiplier" env:"MULTIPLIER"`
}

// CrewConfig 团队执行配置
type CrewConfig struct {
	// 处理方式: hierarchical, sequential
	Process string `yaml:"process" env:"PROCESS"`
	// 整体执行的最大尝试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 第一次重试前的等待，之后翻倍
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 兜底类型: product_search, research, general
	FallbackType string `yaml:"fallback_type" env:"FALLBACK_TYPE"`
	// guardrail 未通过时的任务重试次数，0 表示不重试，不能为负
	GuardrailMaxRetries int `yaml:"guardrail_max_retries" env:"GUARDRAIL_MAX_RETRIES"`
	// 用户查询长度上限
	MaxQueryLength int `yaml:"max_query_length" env:"MAX_QUERY_LENGTH"`
	// 默认查询（未通过命令行传入时使用）
	Query string `yaml:"query" env:"QUERY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
	// 滚动日志文件
	File LogFileConfig `yaml:"file" env:"FILE"`
}

// LogFileConfig 滚动日志文件配置，Path 为空表示不写文件
type LogFileConfig struct {
	Path       string `yaml:"path" env:"PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 使用明文 gRPC 连接 collector
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 进程退出时写入的 textfile 路径（node_exporter textfile collector），为空不写
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
}

// Azure OpenAI 环境变量
const (
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
)

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	dotenv     []string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SHOPCREW",
		dotenv:     []string{".env"},
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithDotenv 设置 .env 文件列表，不存在的文件会被跳过；不传参数表示不加载
func (l *Loader) WithDotenv(paths ...string) *Loader {
	l.dotenv = paths
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → AZURE_OPENAI_* → 前缀环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// .env 不覆盖已存在的环境变量
	if err := l.loadDotenv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyAzureEnv(cfg)

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadDotenv() error {
	var present []string
	for _, p := range l.dotenv {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// applyAzureEnv 映射 Azure OpenAI 标准环境变量
func applyAzureEnv(cfg *Config) {
	set := false
	if v := os.Getenv(EnvAzureDeployment); v != "" {
		cfg.LLM.Model = v
		set = true
	}
	if v := os.Getenv(EnvAzureAPIKey); v != "" {
		cfg.LLM.APIKey = v
		set = true
	}
	if v := os.Getenv(EnvAzureEndpoint); v != "" {
		cfg.LLM.BaseURL = v
		set = true
	}
	if v := os.Getenv(EnvAzureAPIVersion); v != "" {
		cfg.LLM.APIVersion = v
		set = true
	}
	if set {
		cfg.LLM.Provider = "azure"
	}
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验
// =============================================================================

var (
	validProviders     = map[string]bool{"azure": true, "openai": true}
	validProcesses     = map[string]bool{"hierarchical": true, "sequential": true}
	validFallbackTypes = map[string]bool{"product_search": true, "research": true, "general": true}
	validLogLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats    = map[string]bool{"json": true, "console": true}
)

// Validate 验证配置，汇总所有错误
func (c *Config) Validate() error {
	var errs []error

	if !validProviders[c.LLM.Provider] {
		errs = append(errs, fmt.Errorf("llm.provider %q must be azure or openai", c.LLM.Provider))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required"))
	}
	if c.LLM.Provider == "azure" && c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.base_url (Azure endpoint) is required"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, errors.New("llm.temperature must be between 0 and 2"))
	}
	if c.LLM.RateLimitRPS < 0 {
		errs = append(errs, errors.New("llm.rate_limit_rps must not be negative"))
	}
	if c.LLM.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.retry.max_retries must not be negative"))
	}
	if c.LLM.CircuitBreaker.Threshold < 0 {
		errs = append(errs, errors.New("llm.circuit_breaker.threshold must not be negative"))
	}

	if !validProcesses[c.Crew.Process] {
		errs = append(errs, fmt.Errorf("crew.process %q must be hierarchical or sequential", c.Crew.Process))
	}
	if c.Crew.MaxRetries < 1 {
		errs = append(errs, errors.New("crew.max_retries must be at least 1"))
	}
	if !validFallbackTypes[c.Crew.FallbackType] {
		errs = append(errs, fmt.Errorf("crew.fallback_type %q is unknown", c.Crew.FallbackType))
	}
	if c.Crew.GuardrailMaxRetries < 0 {
		errs = append(errs, errors.New("crew.guardrail_max_retries must not be negative"))
	}
	if c.Crew.MaxQueryLength <= 0 {
		errs = append(errs, errors.New("crew.max_query_length must be positive"))
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level %q is invalid", c.Log.Level))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, errors.New("telemetry.otlp_endpoint is required when telemetry is enabled"))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry.sample_rate must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// Load 使用默认前缀加载并校验配置
func Load(path string) (*Config, error) {
	return NewLoader().
		WithConfigPath(path).
		WithValidator((*Config).Validate).
		Load()
}
