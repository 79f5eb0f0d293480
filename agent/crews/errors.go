package crews

import "fmt"

// GuardrailError 表示任务输出在用尽 guardrail 重试后仍未通过校验
type GuardrailError struct {
	TaskID     string
	Attempts   int
	Feedback   string
	LastOutput string
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("task %s failed guardrail after %d attempts: %s", e.TaskID, e.Attempts, e.Feedback)
}

// Kind 返回错误种类名
func (e *GuardrailError) Kind() string { return "GuardrailError" }

// TaskError 包装某个任务执行期间的错误
type TaskError struct {
	TaskID  string
	AgentID string
	Err     error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (agent %s): %v", e.TaskID, e.AgentID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
