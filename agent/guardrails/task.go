package guardrails

import (
	"context"
)

// GuardrailResult 任务护栏的判定结果。
// 未通过时 Feedback 会附加到下一次提示中。
type GuardrailResult struct {
	Passed   bool
	Feedback string
}

// Pass 返回通过结果
func Pass() GuardrailResult { return GuardrailResult{Passed: true} }

// Fail 返回带反馈的失败结果
func Fail(feedback string) GuardrailResult {
	return GuardrailResult{Passed: false, Feedback: feedback}
}

// TaskGuardrail 作用于 Agent 文本输出的验证函数，决定是否重试该任务
type TaskGuardrail func(ctx context.Context, output string) GuardrailResult

// FromValidator 把 Validator 适配为任务护栏，第一条错误消息作为反馈。
// 验证器自身出错视为未通过。
func FromValidator(v Validator) TaskGuardrail {
	return func(ctx context.Context, output string) GuardrailResult {
		result, err := v.Validate(ctx, output)
		if err != nil {
			if result != nil && result.FirstMessage() != "" {
				return Fail(result.FirstMessage())
			}
			return Fail(err.Error())
		}
		if !result.Valid {
			return Fail(result.FirstMessage())
		}
		return Pass()
	}
}
