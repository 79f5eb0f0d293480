package guardrails

import "context"

// 护栏反馈文案，Agent 重试时原样看到
const (
	ProductLacksDetailMessage = "Response lacks product details. Please try again with more specific information."
	ProductTooBriefMessage    = "Response too brief. Please provide more detailed information."
	ResearchTooBriefMessage   = "Research findings too brief. Please provide more comprehensive analysis."

	MinProductResponseLength  = 50
	MinResearchResponseLength = 100
)

// UnhelpfulPhrases 表示 Agent 没有给出产品信息的短语（不区分大小写）
var UnhelpfulPhrases = []string{"i don't know", "i cannot", "no products found", "unable to find"}

// NewProductResponseValidator 先检查无效短语，再检查最小长度，快速失败
func NewProductResponseValidator() *ValidatorChain {
	return NewValidatorChain("product_response", ChainModeFailFast,
		NewPhraseValidator(PhraseValidatorConfig{
			Name:     "unhelpful_phrases",
			Phrases:  UnhelpfulPhrases,
			Message:  ProductLacksDetailMessage,
			Priority: 10,
		}),
		NewLengthValidator(LengthValidatorConfig{
			Name:            "product_min_length",
			MinLength:       MinProductResponseLength,
			TooShortMessage: ProductTooBriefMessage,
			Priority:        20,
		}),
	)
}

// NewResearchResponseValidator 只检查最小长度
func NewResearchResponseValidator() *ValidatorChain {
	return NewValidatorChain("research_response", ChainModeFailFast,
		NewLengthValidator(LengthValidatorConfig{
			Name:            "research_min_length",
			MinLength:       MinResearchResponseLength,
			TooShortMessage: ResearchTooBriefMessage,
			Priority:        10,
		}),
	)
}

var (
	productGuardrail  = FromValidator(NewProductResponseValidator())
	researchGuardrail = FromValidator(NewResearchResponseValidator())
)

// ValidateProductResponse 校验产品推荐输出包含实际产品信息
func ValidateProductResponse(ctx context.Context, output string) GuardrailResult {
	return productGuardrail(ctx, output)
}

// ValidateResearchResponse 校验调研输出足够充分
func ValidateResearchResponse(ctx context.Context, output string) GuardrailResult {
	return researchGuardrail(ctx, output)
}

// NewQueryValidator 用户查询的输入侧检查：长度上限与提示注入。
// 命中 critical 注入模式时触发 Tripwire。
func NewQueryValidator(maxLength int) *ValidatorChain {
	return NewValidatorChain("query_input", ChainModeParallel,
		NewLengthValidator(LengthValidatorConfig{
			Name:      "query_max_length",
			MinLength: 1,
			MaxLength: maxLength,
			Priority:  10,
		}),
		NewInjectionDetector(InjectionDetectorConfig{
			TripwireOnCritical: true,
			Priority:           20,
		}),
	)
}
