package guardrails

import (
	"context"
	"fmt"
)

// Validator 验证器接口
// 用于验证用户查询或 Agent 输出
type Validator interface {
	// Validate 执行验证，返回验证结果
	Validate(ctx context.Context, content string) (*ValidationResult, error)
	// Name 返回验证器名称
	Name() string
	// Priority 返回优先级（数字越小优先级越高）
	Priority() int
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Tripwire bool              `json:"tripwire,omitempty"` // 触发即中断整个 crew 执行
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Executed []string          `json:"executed,omitempty"` // 链中实际执行过的验证器，按执行顺序
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// NewValidationResult 创建一个有效的验证结果
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Metadata: make(map[string]any),
	}
}

// AddError 添加验证错误并将结果标记为无效
func (r *ValidationResult) AddError(err ValidationError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning 添加警告信息
func (r *ValidationResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// FirstMessage 返回第一条错误消息，结果有效时返回空串
func (r *ValidationResult) FirstMessage() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Merge 合并另一个验证结果
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	if !other.Valid {
		r.Valid = false
	}
	if other.Tripwire {
		r.Tripwire = true
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	for k, v := range other.Metadata {
		r.Metadata[k] = v
	}
}

// ValidationError 验证错误
type ValidationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // critical, high, medium, low
}

// Severity 常量定义
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Error 错误代码常量
const (
	ErrCodeInjectionDetected = "INJECTION_DETECTED"
	ErrCodeMaxLengthExceeded = "MAX_LENGTH_EXCEEDED"
	ErrCodeTooShort          = "TOO_SHORT"
	ErrCodeBlockedPhrase     = "BLOCKED_PHRASE"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
)

// TripwireError 表示 Tripwire 被触发的错误。
// 当验证器返回 Tripwire=true 时，整个执行链应立即中断，不再重试。
type TripwireError struct {
	ValidatorName string
	Result        *ValidationResult
}

// Error 实现 error 接口
func (e *TripwireError) Error() string {
	return fmt.Sprintf("tripwire triggered by validator %q: %s", e.ValidatorName, e.Result.FirstMessage())
}

// Kind 返回降级响应中的 error_type
func (e *TripwireError) Kind() string { return "TripwireError" }

// compareSeverity 比较两个严重级别
// 返回: >0 如果 a > b, <0 如果 a < b, 0 如果相等
func compareSeverity(a, b string) int {
	severityOrder := map[string]int{
		SeverityLow:      1,
		SeverityMedium:   2,
		SeverityHigh:     3,
		SeverityCritical: 4,
	}
	return severityOrder[a] - severityOrder[b]
}
