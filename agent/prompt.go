package agent

import (
	"strings"

	"github.com/BaSui01/shopcrew/agent/crews"
)

// SystemPrompt 由角色信息渲染系统提示词
func SystemPrompt(role crews.Role) string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(strings.TrimSpace(role.Name))
	b.WriteString(".")
	if s := strings.TrimSpace(role.Backstory); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	if s := strings.TrimSpace(role.Goal); s != "" {
		b.WriteString("\n\nYour personal goal is: ")
		b.WriteString(s)
	}
	return b.String()
}

// TaskPrompt 渲染任务的用户提示词，按需附带上下文与 guardrail 反馈
func TaskPrompt(task crews.CrewTask) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(strings.TrimSpace(task.Description))

	if s := strings.TrimSpace(task.Expected); s != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(s)
		b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	}
	if s := strings.TrimSpace(task.Context); s != "" {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(s)
	}
	if s := strings.TrimSpace(task.Feedback); s != "" {
		b.WriteString("\n\nYour previous answer was rejected: ")
		b.WriteString(s)
		b.WriteString("\nRevise your answer to address this feedback.")
	}
	b.WriteString("\n\nBegin! Give your best final answer.")
	return b.String()
}
