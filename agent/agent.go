package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/tokenizer"
	"github.com/BaSui01/shopcrew/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultTemperature 是未配置温度时使用的采样温度
const DefaultTemperature float32 = 0.7

// Config Agent 配置
type Config struct {
	ID          string        `json:"id" yaml:"id"`
	Role        crews.Role    `json:"role" yaml:"role"`
	Model       string        `json:"model" yaml:"model"`             // LLM 模型（Azure 下为部署名）
	MaxTokens   int           `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature float32       `json:"temperature,omitempty" yaml:"temperature"` // 0 取 DefaultTemperature
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// Agent 是由 LLM 驱动的团队成员，实现 crews.CrewAgent
type Agent struct {
	config    Config
	provider  llm.Provider
	tokenizer tokenizer.Tokenizer
	tracer    trace.Tracer
	logger    *zap.Logger
}

var _ crews.CrewAgent = (*Agent)(nil)

// Option 调整 Agent
type Option func(*Agent)

// WithTokenizer 替换用于估算提示词 token 的分词器
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(a *Agent) { a.tokenizer = t }
}

// New 创建 Agent。ID 为空时由角色名生成。
func New(config Config, provider llm.Provider, logger *zap.Logger, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, types.NewError(types.ErrProviderNotSet, "agent requires an llm provider")
	}
	if strings.TrimSpace(config.Role.Name) == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "agent role name is required")
	}
	if config.ID == "" {
		config.ID = Slug(config.Role.Name)
	}
	if config.ID == "" {
		config.ID = strings.TrimSpace(config.Role.Name)
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Agent{
		config:   config,
		provider: provider,
		tracer:   otel.Tracer("github.com/BaSui01/shopcrew/agent"),
		logger:   logger.With(zap.String("component", "agent"), zap.String("agent", config.ID)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tokenizer == nil {
		a.tokenizer = tokenizer.ForModel(config.Model, a.logger)
	}
	return a, nil
}

func (a *Agent) ID() string { return a.config.ID }

// Role 返回角色定义
func (a *Agent) Role() crews.Role { return a.config.Role }

// Config 返回配置副本
func (a *Agent) Config() Config { return a.config }

// Execute 把任务渲染为对话并调用 LLM
func (a *Agent) Execute(ctx context.Context, task crews.CrewTask) (*crews.TaskResult, error) {
	ctx, span := a.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.id", a.config.ID),
		attribute.String("agent.role", a.config.Role.Name),
		attribute.String("crew.task_id", task.ID),
		attribute.Int("crew.attempt", task.Attempt),
	))
	defer span.End()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt(a.config.Role)},
		{Role: llm.RoleUser, Content: TaskPrompt(task)},
	}
	a.logPromptTokens(task, messages)

	start := time.Now()
	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		TraceID:     task.ID,
		Model:       a.config.Model,
		Messages:    messages,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		Timeout:     a.config.Timeout,
		Metadata: map[string]string{
			"agent": a.config.ID,
			"task":  task.ID,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	output := strings.TrimSpace(resp.FirstContent())
	if output == "" {
		err := types.NewError(types.ErrEmptyOutput,
			fmt.Sprintf("agent %s returned empty output for task %s", a.config.ID, task.ID))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	duration := time.Since(start)
	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	a.logger.Debug("task executed",
		zap.String("task", task.ID),
		zap.Int("attempt", task.Attempt),
		zap.Duration("duration", duration),
		zap.Int("tokens_used", resp.Usage.TotalTokens))

	return &crews.TaskResult{
		TaskID:     task.ID,
		AgentID:    a.config.ID,
		Output:     output,
		TokensUsed: resp.Usage.TotalTokens,
		Duration:   duration,
	}, nil
}

// Negotiate 接受委派：允许委派或任务明确指派给自己时接受
func (a *Agent) Negotiate(_ context.Context, proposal crews.Proposal) (*crews.NegotiationResult, error) {
	switch proposal.Type {
	case crews.ProposalTypeDelegate:
		if proposal.Task == nil {
			return &crews.NegotiationResult{Accepted: false, Response: "no task in proposal"}, nil
		}
		if a.config.Role.AllowDelegation || proposal.Task.AssignedTo == a.config.ID {
			return &crews.NegotiationResult{Accepted: true, Response: a.config.ID}, nil
		}
		return &crews.NegotiationResult{Accepted: false, Response: "delegation not allowed"}, nil
	default:
		return &crews.NegotiationResult{Accepted: false, Response: fmt.Sprintf("unsupported proposal %q", proposal.Type)}, nil
	}
}

func (a *Agent) logPromptTokens(task crews.CrewTask, messages []llm.Message) {
	n, err := a.tokenizer.CountMessages(messages)
	if err != nil {
		a.logger.Debug("token estimate unavailable", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.String("task", task.ID),
		zap.Int("prompt_tokens", n),
		zap.String("tokenizer", a.tokenizer.Name()),
	}
	if limit := a.tokenizer.MaxTokens(); limit > 0 && n > limit {
		a.logger.Warn("prompt exceeds model context window", append(fields, zap.Int("limit", limit))...)
		return
	}
	a.logger.Debug("prompt prepared", fields...)
}

// Slug 把角色名转成成员 ID，如 "Product Expert" -> "product_expert"
func Slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "_")
}
