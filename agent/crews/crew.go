package crews

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/shopcrew/agent/guardrails"
	"github.com/BaSui01/shopcrew/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultGuardrailMaxRetries 是任务未指定时 guardrail 失败后的重试次数
const DefaultGuardrailMaxRetries = 2

// Role 定义成员在团队中的角色
type Role struct {
	Name            string `json:"name" yaml:"name"`
	Goal            string `json:"goal" yaml:"goal"`
	Backstory       string `json:"backstory,omitempty" yaml:"backstory"`
	AllowDelegation bool   `json:"allow_delegation" yaml:"allow_delegation"`
}

// CrewMember 团队成员
type CrewMember struct {
	ID     string       `json:"id"`
	Role   Role         `json:"role"`
	Agent  CrewAgent    `json:"-"`
	Status MemberStatus `json:"status"`
}

// MemberStatus 成员状态
type MemberStatus string

const (
	MemberStatusIdle    MemberStatus = "idle"
	MemberStatusWorking MemberStatus = "working"
)

// CrewAgent 是团队成员背后的执行者
type CrewAgent interface {
	ID() string
	Execute(ctx context.Context, task CrewTask) (*TaskResult, error)
	Negotiate(ctx context.Context, proposal Proposal) (*NegotiationResult, error)
}

// CrewTask 是渲染完成、交给成员执行的一次任务调用
type CrewTask struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	Expected    string `json:"expected_output"`
	Context     string `json:"context,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	// Feedback 是上一次输出未通过 guardrail 的原因
	Feedback string `json:"feedback,omitempty"`
	Attempt  int    `json:"attempt"`
}

// TaskResult 成员一次执行的结果
type TaskResult struct {
	TaskID     string        `json:"task_id"`
	AgentID    string        `json:"agent_id"`
	Output     string        `json:"output"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Proposal 成员之间的协商提案
type Proposal struct {
	Type       ProposalType `json:"type"`
	FromMember string       `json:"from_member"`
	ToMember   string       `json:"to_member,omitempty"`
	Task       *CrewTask    `json:"task,omitempty"`
	Message    string       `json:"message"`
}

// ProposalType 提案类型，团队只发出委派提案
type ProposalType string

const ProposalTypeDelegate ProposalType = "delegate"

// NegotiationResult 协商结果
type NegotiationResult struct {
	Accepted bool   `json:"accepted"`
	Response string `json:"response"`
}

// Task 是团队任务模板，Description 与 ExpectedOutput 支持 {name} 占位符
type Task struct {
	ID             string
	Name           string
	Description    string
	ExpectedOutput string
	AssignedTo     string
	Guardrail      guardrails.TaskGuardrail
	// GuardrailMaxRetries 为 0 时取 DefaultGuardrailMaxRetries，负数表示不重试
	GuardrailMaxRetries int
	// Context 列出输出需要传给本任务的前序任务 ID；为空时使用上一个任务的输出
	Context []string
}

func (t *Task) guardrailRetries() int {
	switch {
	case t.GuardrailMaxRetries == 0:
		return DefaultGuardrailMaxRetries
	case t.GuardrailMaxRetries < 0:
		return 0
	default:
		return t.GuardrailMaxRetries
	}
}

// ProcessType 任务处理方式
type ProcessType string

const (
	ProcessSequential   ProcessType = "sequential"
	ProcessHierarchical ProcessType = "hierarchical"
)

// ParseProcessType 解析配置中的处理方式
func ParseProcessType(s string) (ProcessType, error) {
	switch p := ProcessType(s); p {
	case ProcessSequential, ProcessHierarchical:
		return p, nil
	case "":
		return ProcessHierarchical, nil
	default:
		return "", types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unknown process type %q", s))
	}
}

// TaskCallback 在每个任务完成后调用
type TaskCallback func(output *TaskOutput)

// StepCallback 在每次成员执行（含 guardrail 重试）后调用
type StepCallback func(step StepOutput)

// StepOutput 描述一次成员执行
type StepOutput struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
	Role    string `json:"role"`
	Attempt int    `json:"attempt"`
	Output  string `json:"output"`
}

// Recorder 记录团队执行指标
type Recorder interface {
	RecordGuardrailFailure(taskID string)
}

// Crew 一组协作完成任务的成员
type Crew struct {
	ID          string
	Name        string
	Description string
	Process     ProcessType

	members map[string]*CrewMember
	order   []string
	manager *CrewMember
	tasks   []*Task

	taskCallback TaskCallback
	stepCallback StepCallback
	recorder     Recorder
	tracer       trace.Tracer
	logger       *zap.Logger
	mu           sync.RWMutex
}

// CrewConfig 团队配置
type CrewConfig struct {
	Name        string
	Description string
	Process     ProcessType
}

// Option 调整团队行为
type Option func(*Crew)

// WithTaskCallback 设置任务完成回调
func WithTaskCallback(fn TaskCallback) Option {
	return func(c *Crew) { c.taskCallback = fn }
}

// WithStepCallback 设置单步回调
func WithStepCallback(fn StepCallback) Option {
	return func(c *Crew) { c.stepCallback = fn }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(c *Crew) { c.recorder = r }
}

// NewCrew 创建团队，Process 为空时使用层级模式
func NewCrew(config CrewConfig, logger *zap.Logger, opts ...Option) *Crew {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Process == "" {
		config.Process = ProcessHierarchical
	}
	c := &Crew{
		ID:          uuid.NewString(),
		Name:        config.Name,
		Description: config.Description,
		Process:     config.Process,
		members:     make(map[string]*CrewMember),
		tracer:      otel.Tracer("github.com/BaSui01/shopcrew/agent/crews"),
		logger:      logger.With(zap.String("component", "crew"), zap.String("crew", config.Name)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddMember 添加成员，重复 ID 覆盖原成员
func (c *Crew) AddMember(agent CrewAgent, role Role) *CrewMember {
	c.mu.Lock()
	defer c.mu.Unlock()

	member := &CrewMember{
		ID:     agent.ID(),
		Role:   role,
		Agent:  agent,
		Status: MemberStatusIdle,
	}
	if _, exists := c.members[member.ID]; !exists {
		c.order = append(c.order, member.ID)
	}
	c.members[member.ID] = member
	c.logger.Info("added crew member", zap.String("id", member.ID), zap.String("role", role.Name))
	return member
}

// SetManager 设置层级模式下的管理者，管理者不作为普通成员参与分配
func (c *Crew) SetManager(agent CrewAgent, role Role) *CrewMember {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.manager = &CrewMember{
		ID:     agent.ID(),
		Role:   role,
		Agent:  agent,
		Status: MemberStatusIdle,
	}
	c.logger.Info("set crew manager", zap.String("id", agent.ID()), zap.String("role", role.Name))
	return c.manager
}

// Member 按 ID 查找成员（包括管理者）
func (c *Crew) Member(id string) (*CrewMember, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(id)
}

func (c *Crew) lookup(id string) (*CrewMember, bool) {
	if m, ok := c.members[id]; ok {
		return m, true
	}
	if c.manager != nil && c.manager.ID == id {
		return c.manager, true
	}
	return nil, false
}

// Members 按加入顺序返回成员
func (c *Crew) Members() []*CrewMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*CrewMember, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.members[id])
	}
	return out
}

// Manager 返回管理者，未设置时为 nil
func (c *Crew) Manager() *CrewMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manager
}

// AddTask 追加任务。Context 只能引用已添加的任务。
func (c *Crew) AddTask(task Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task.ID == "" {
		task.ID = fmt.Sprintf("task_%d", len(c.tasks)+1)
	}
	known := make(map[string]bool, len(c.tasks))
	for _, t := range c.tasks {
		known[t.ID] = true
	}
	if known[task.ID] {
		return types.NewError(types.ErrInvalidConfig, fmt.Sprintf("duplicate task id %q", task.ID))
	}
	for _, dep := range task.Context {
		if !known[dep] {
			return types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("task %q references unknown context task %q", task.ID, dep))
		}
	}
	c.tasks = append(c.tasks, &task)
	return nil
}

// Tasks 返回任务模板副本
func (c *Crew) Tasks() []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, *t)
	}
	return out
}
