package guardrails

import (
	"context"
	"regexp"
	"strings"
)

// injectionPattern 注入模式
type injectionPattern struct {
	re          *regexp.Regexp
	description string
	severity    string
}

// 用户查询会被原样插入任务描述，这些模式拦截试图改写 Agent 指令的输入。
var defaultInjectionPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`), "Attempt to ignore previous instructions", SeverityCritical},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier|the\s+above)`), "Attempt to disregard instructions", SeverityCritical},
	{regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you\s+)?(know|were\s+told)`), "Attempt to make model forget context", SeverityCritical},
	{regexp.MustCompile(`(?i)(new|updated|override)\s+instructions?`), "Attempt to inject new instructions", SeverityHigh},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\b`), "Attempt to change model role", SeverityHigh},
	{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)\b`), "Attempt to make model pretend", SeverityMedium},
	{regexp.MustCompile(`(?im)^\s*(system|assistant)\s*:`), "Role marker injection", SeverityCritical},
	{regexp.MustCompile(`(?i)<\s*/?\s*system\s*>|\[\s*/?INST\s*\]`), "Prompt tag injection", SeverityCritical},
	{regexp.MustCompile(`(?i)\bjailbreak\b|do\s+anything\s+now`), "Jailbreak attempt", SeverityCritical},
	{regexp.MustCompile(`忽略(之前|上面|以上|先前)(的)?(指令|指示|规则|提示)`), "尝试忽略之前的指令", SeverityCritical},
	{regexp.MustCompile(`你现在是(一个|一名)?`), "尝试改变模型角色", SeverityHigh},
}

// InjectionDetectorConfig 注入检测器配置
type InjectionDetectorConfig struct {
	// CustomPatterns 额外的正则（不区分大小写），编译失败的被忽略
	CustomPatterns []string
	// TripwireOnCritical 命中 critical 模式时设置 Tripwire
	TripwireOnCritical bool
	Priority           int
}

// InjectionMatch 注入匹配结果
type InjectionMatch struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Position    int    `json:"position"`
	MatchedText string `json:"matched_text"`
}

// InjectionDetector 提示注入检测器
type InjectionDetector struct {
	patterns []injectionPattern
	cfg      InjectionDetectorConfig
}

// NewInjectionDetector 创建注入检测器
func NewInjectionDetector(cfg InjectionDetectorConfig) *InjectionDetector {
	patterns := append([]injectionPattern(nil), defaultInjectionPatterns...)
	for _, p := range cfg.CustomPatterns {
		if re, err := regexp.Compile("(?i)" + p); err == nil {
			patterns = append(patterns, injectionPattern{re, "Custom injection pattern", SeverityHigh})
		}
	}
	return &InjectionDetector{patterns: patterns, cfg: cfg}
}

// Name 返回验证器名称
func (d *InjectionDetector) Name() string { return "injection_detector" }

// Priority 返回优先级
func (d *InjectionDetector) Priority() int { return d.cfg.Priority }

// Detect 返回所有命中的注入模式
func (d *InjectionDetector) Detect(content string) []InjectionMatch {
	var matches []InjectionMatch
	for _, p := range d.patterns {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			matches = append(matches, InjectionMatch{
				Description: p.description,
				Severity:    p.severity,
				Position:    loc[0],
				MatchedText: content[loc[0]:loc[1]],
			})
		}
	}
	return matches
}

// Validate 执行注入检测
func (d *InjectionDetector) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	matches := d.Detect(content)
	if len(matches) == 0 {
		return result, nil
	}

	highest := SeverityLow
	seen := make(map[string]bool)
	var descriptions []string
	for _, m := range matches {
		if compareSeverity(m.Severity, highest) > 0 {
			highest = m.Severity
		}
		if !seen[m.Description] {
			seen[m.Description] = true
			descriptions = append(descriptions, m.Description)
		}
	}

	result.AddError(ValidationError{
		Code:     ErrCodeInjectionDetected,
		Message:  "prompt injection detected: " + strings.Join(descriptions, "; "),
		Severity: highest,
	})
	result.Metadata["injection_matches"] = matches
	if d.cfg.TripwireOnCritical && highest == SeverityCritical {
		result.Tripwire = true
	}
	return result, nil
}
