package guardrails

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// LengthValidatorConfig 长度验证器配置
// MinLength/MaxLength 为 0 表示不限制；长度按字符（rune）计算。
type LengthValidatorConfig struct {
	Name      string
	MinLength int
	MaxLength int
	// TooShortMessage / TooLongMessage 覆盖默认错误消息
	TooShortMessage string
	TooLongMessage  string
	Priority        int
}

// LengthValidator 长度验证器
// 输入侧限制用户查询过长，输出侧拒绝过于简短的回答。
type LengthValidator struct {
	cfg LengthValidatorConfig
}

// NewLengthValidator 创建长度验证器
func NewLengthValidator(cfg LengthValidatorConfig) *LengthValidator {
	if cfg.Name == "" {
		cfg.Name = "length_validator"
	}
	return &LengthValidator{cfg: cfg}
}

// Name 返回验证器名称
func (v *LengthValidator) Name() string { return v.cfg.Name }

// Priority 返回优先级
func (v *LengthValidator) Priority() int { return v.cfg.Priority }

// Validate 执行长度验证
func (v *LengthValidator) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	n := utf8.RuneCountInString(content)
	result.Metadata["length"] = n

	if v.cfg.MinLength > 0 && n < v.cfg.MinLength {
		msg := v.cfg.TooShortMessage
		if msg == "" {
			msg = fmt.Sprintf("content length %d is below minimum %d", n, v.cfg.MinLength)
		}
		result.AddError(ValidationError{Code: ErrCodeTooShort, Message: msg, Severity: SeverityMedium})
	}
	if v.cfg.MaxLength > 0 && n > v.cfg.MaxLength {
		msg := v.cfg.TooLongMessage
		if msg == "" {
			msg = fmt.Sprintf("content length %d exceeds maximum %d", n, v.cfg.MaxLength)
		}
		result.AddError(ValidationError{Code: ErrCodeMaxLengthExceeded, Message: msg, Severity: SeverityHigh})
	}
	return result, nil
}

// PhraseValidatorConfig 短语验证器配置
type PhraseValidatorConfig struct {
	Name    string
	Phrases []string
	// Message 命中时的错误消息，为空时列出命中的短语
	Message       string
	Severity      string
	CaseSensitive bool
	Priority      int
}

// PhraseValidator 检测内容中是否出现任一短语。
// 用于拒绝"i don't know"这类没有信息量的回答。
type PhraseValidator struct {
	cfg     PhraseValidatorConfig
	phrases []string
}

// NewPhraseValidator 创建短语验证器
func NewPhraseValidator(cfg PhraseValidatorConfig) *PhraseValidator {
	if cfg.Name == "" {
		cfg.Name = "phrase_validator"
	}
	if cfg.Severity == "" {
		cfg.Severity = SeverityMedium
	}
	phrases := make([]string, 0, len(cfg.Phrases))
	for _, p := range cfg.Phrases {
		if p == "" {
			continue
		}
		if !cfg.CaseSensitive {
			p = strings.ToLower(p)
		}
		phrases = append(phrases, p)
	}
	return &PhraseValidator{cfg: cfg, phrases: phrases}
}

// Name 返回验证器名称
func (v *PhraseValidator) Name() string { return v.cfg.Name }

// Priority 返回优先级
func (v *PhraseValidator) Priority() int { return v.cfg.Priority }

// Detect 返回内容中出现的短语，按配置顺序
func (v *PhraseValidator) Detect(content string) []string {
	if !v.cfg.CaseSensitive {
		content = strings.ToLower(content)
	}
	var hits []string
	for _, p := range v.phrases {
		if strings.Contains(content, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

// Validate 执行短语验证
func (v *PhraseValidator) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	hits := v.Detect(content)
	if len(hits) == 0 {
		return result, nil
	}

	msg := v.cfg.Message
	if msg == "" {
		msg = "blocked phrases detected: " + strings.Join(hits, ", ")
	}
	result.AddError(ValidationError{Code: ErrCodeBlockedPhrase, Message: msg, Severity: v.cfg.Severity})
	result.Metadata["matched_phrases"] = hits
	return result, nil
}
