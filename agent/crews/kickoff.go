package crews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/shopcrew/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ManagerReviewTaskID 是层级模式下管理者终审任务的 ID
const ManagerReviewTaskID = "manager_review"

// TaskOutput 单个任务的最终输出
type TaskOutput struct {
	TaskID         string        `json:"task_id"`
	Name           string        `json:"name,omitempty"`
	Description    string        `json:"description"`
	ExpectedOutput string        `json:"expected_output"`
	AgentID        string        `json:"agent_id"`
	Agent          string        `json:"agent"`
	Raw            string        `json:"raw"`
	Attempts       int           `json:"attempts"`
	TokensUsed     int           `json:"tokens_used,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// CrewOutput 一次 Kickoff 的结果
type CrewOutput struct {
	RunID       string        `json:"run_id"`
	Raw         string        `json:"raw"`
	TasksOutput []*TaskOutput `json:"tasks_output"`
	TokensUsed  int           `json:"tokens_used,omitempty"`
	Duration    time.Duration `json:"duration"`
}

func (o *CrewOutput) String() string { return o.Raw }

type renderedTask struct {
	spec        *Task
	description string
	expected    string
}

// Kickoff 按声明顺序执行全部任务并返回最终输出。
// 任务模板中的 {name} 占位符由 inputs 填充；任一任务失败即中止。
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*CrewOutput, error) {
	c.mu.RLock()
	tasks := append([]*Task(nil), c.tasks...)
	process := c.Process
	manager := c.manager
	c.mu.RUnlock()

	if len(tasks) == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "crew has no tasks")
	}
	if process == ProcessHierarchical && manager == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "hierarchical process requires a manager")
	}

	rendered := make([]renderedTask, 0, len(tasks))
	for _, t := range tasks {
		desc, err := Interpolate(t.Description, inputs)
		if err != nil {
			return nil, fmt.Errorf("task %s description: %w", t.ID, err)
		}
		expected, err := Interpolate(t.ExpectedOutput, inputs)
		if err != nil {
			return nil, fmt.Errorf("task %s expected output: %w", t.ID, err)
		}
		rendered = append(rendered, renderedTask{spec: t, description: desc, expected: expected})
	}

	runID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "crew.kickoff", trace.WithAttributes(
		attribute.String("crew.id", c.ID),
		attribute.String("crew.run_id", runID),
		attribute.String("crew.process", string(process)),
		attribute.Int("crew.tasks", len(tasks)),
	))
	defer span.End()

	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("crew kickoff", zap.String("process", string(process)), zap.Int("tasks", len(tasks)))
	start := time.Now()

	output := &CrewOutput{RunID: runID}
	byID := make(map[string]*TaskOutput, len(tasks))
	var previous *TaskOutput

	for _, rt := range rendered {
		task := CrewTask{
			ID:          rt.spec.ID,
			Name:        rt.spec.Name,
			Description: rt.description,
			Expected:    rt.expected,
			Context:     buildContext(rt.spec, byID, previous),
			AssignedTo:  rt.spec.AssignedTo,
		}

		member, err := c.resolveExecutor(ctx, process, manager, task)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		taskOut, err := c.runTask(ctx, logger, member, rt.spec, task)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("crew kickoff aborted", zap.String("task", task.ID), zap.Error(err))
			return nil, err
		}

		byID[taskOut.TaskID] = taskOut
		previous = taskOut
		output.TasksOutput = append(output.TasksOutput, taskOut)
		output.TokensUsed += taskOut.TokensUsed
		if c.taskCallback != nil {
			c.taskCallback(taskOut)
		}
	}

	output.Raw = previous.Raw
	if process == ProcessHierarchical {
		review, err := c.managerReview(ctx, logger, manager, rendered[len(rendered)-1], output.TasksOutput)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		output.Raw = review.Output
		output.TokensUsed += review.TokensUsed
	}

	output.Duration = time.Since(start)
	logger.Info("crew kickoff completed",
		zap.Duration("duration", output.Duration),
		zap.Int("tokens_used", output.TokensUsed))
	return output, nil
}

// buildContext 拼接 Context 声明的任务输出；未声明时沿用上一个任务的输出
func buildContext(spec *Task, byID map[string]*TaskOutput, previous *TaskOutput) string {
	if len(spec.Context) == 0 {
		if previous == nil {
			return ""
		}
		return previous.Raw
	}
	parts := make([]string, 0, len(spec.Context))
	for _, id := range spec.Context {
		if out, ok := byID[id]; ok {
			parts = append(parts, out.Raw)
		}
	}
	return strings.Join(parts, "\n\n----------\n\n")
}

// resolveExecutor 选出执行任务的成员。
// 层级模式下由管理者发起 delegate 提案，被拒绝或协商出错时管理者自己执行。
func (c *Crew) resolveExecutor(ctx context.Context, process ProcessType, manager *CrewMember, task CrewTask) (*CrewMember, error) {
	c.mu.RLock()
	assigned, found := c.lookup(task.AssignedTo)
	var first *CrewMember
	if len(c.order) > 0 {
		first = c.members[c.order[0]]
	}
	c.mu.RUnlock()

	if task.AssignedTo != "" && !found {
		return nil, types.NewError(types.ErrNoAssignee,
			fmt.Sprintf("task %s is assigned to unknown member %q", task.ID, task.AssignedTo))
	}

	if process != ProcessHierarchical {
		if task.AssignedTo != "" {
			return assigned, nil
		}
		if first == nil {
			return nil, types.NewError(types.ErrNoAssignee, fmt.Sprintf("no member available for task %s", task.ID))
		}
		return first, nil
	}

	if task.AssignedTo == "" || assigned.ID == manager.ID {
		return manager, nil
	}

	proposal := Proposal{
		Type:       ProposalTypeDelegate,
		FromMember: manager.ID,
		ToMember:   assigned.ID,
		Task:       &task,
		Message:    fmt.Sprintf("Please handle task: %s", task.ID),
	}
	result, err := assigned.Agent.Negotiate(ctx, proposal)
	if err != nil {
		c.logger.Warn("negotiation failed, falling back to manager",
			zap.String("delegatee", assigned.ID),
			zap.String("task", task.ID),
			zap.Error(err))
		return manager, nil
	}
	if result == nil || !result.Accepted {
		c.logger.Info("delegation declined, manager takes the task",
			zap.String("delegatee", assigned.ID),
			zap.String("task", task.ID))
		return manager, nil
	}
	return assigned, nil
}

// runTask 执行任务，guardrail 未通过时携带反馈重试
func (c *Crew) runTask(ctx context.Context, logger *zap.Logger, member *CrewMember, spec *Task, task CrewTask) (*TaskOutput, error) {
	ctx, span := c.tracer.Start(ctx, "crew.task", trace.WithAttributes(
		attribute.String("crew.task_id", task.ID),
		attribute.String("crew.agent_id", member.ID),
	))
	defer span.End()

	maxRetries := spec.guardrailRetries()
	start := time.Now()
	tokens := 0
	var feedback, lastOutput string

	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		task.Attempt = attempt
		result, err := c.execute(ctx, member, task)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, &TaskError{TaskID: task.ID, AgentID: member.ID, Err: err}
		}
		tokens += result.TokensUsed
		lastOutput = result.Output

		if spec.Guardrail == nil {
			return c.taskOutput(member, task, result.Output, attempt, tokens, start), nil
		}
		verdict := spec.Guardrail(ctx, result.Output)
		if verdict.Passed {
			return c.taskOutput(member, task, result.Output, attempt, tokens, start), nil
		}

		feedback = verdict.Feedback
		if c.recorder != nil {
			c.recorder.RecordGuardrailFailure(task.ID)
		}
		logger.Warn("guardrail rejected task output",
			zap.String("task", task.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.String("feedback", feedback))
		task.Feedback = feedback
	}

	err := &GuardrailError{TaskID: task.ID, Attempts: maxRetries + 1, Feedback: feedback, LastOutput: lastOutput}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

func (c *Crew) execute(ctx context.Context, member *CrewMember, task CrewTask) (*TaskResult, error) {
	c.setStatus(member, MemberStatusWorking)
	result, err := member.Agent.Execute(ctx, task)
	c.setStatus(member, MemberStatusIdle)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, types.NewError(types.ErrEmptyOutput, fmt.Sprintf("member %s returned no result", member.ID))
	}
	if c.stepCallback != nil {
		c.stepCallback(StepOutput{
			TaskID:  task.ID,
			AgentID: member.ID,
			Role:    member.Role.Name,
			Attempt: task.Attempt,
			Output:  result.Output,
		})
	}
	return result, nil
}

func (c *Crew) taskOutput(member *CrewMember, task CrewTask, raw string, attempts, tokens int, start time.Time) *TaskOutput {
	return &TaskOutput{
		TaskID:         task.ID,
		Name:           task.Name,
		Description:    task.Description,
		ExpectedOutput: task.Expected,
		AgentID:        member.ID,
		Agent:          member.Role.Name,
		Raw:            raw,
		Attempts:       attempts,
		TokensUsed:     tokens,
		Duration:       time.Since(start),
	}
}

// managerReview 让管理者基于全部任务输出给出最终答复
func (c *Crew) managerReview(ctx context.Context, logger *zap.Logger, manager *CrewMember, last renderedTask, outputs []*TaskOutput) (*TaskResult, error) {
	var b strings.Builder
	for i, out := range outputs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s (%s)\n%s", out.Agent, out.TaskID, out.Raw)
	}

	review := CrewTask{
		ID:   ManagerReviewTaskID,
		Name: "Manager review",
		Description: "Review the work produced by your crew and deliver the final answer for this request:\n\n" +
			last.description,
		Expected: last.expected,
		Context:  b.String(),
		Attempt:  1,
	}
	logger.Debug("manager review", zap.String("manager", manager.ID))
	result, err := c.execute(ctx, manager, review)
	if err != nil {
		return nil, &TaskError{TaskID: review.ID, AgentID: manager.ID, Err: err}
	}
	return result, nil
}

func (c *Crew) setStatus(member *CrewMember, status MemberStatus) {
	c.mu.Lock()
	member.Status = status
	c.mu.Unlock()
}
