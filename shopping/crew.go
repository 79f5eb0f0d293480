package shopping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/shopcrew/agent"
	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/agent/guardrails"
	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/tokenizer"
	"github.com/BaSui01/shopcrew/types"
	"go.uber.org/zap"
)

// 成员 ID
const (
	ProductExpertID       = "product_expert"
	ProductResearcherID   = "product_researcher"
	ResearchCoordinatorID = "research_coordinator"
)

// 任务 ID
const (
	ProductTaskID   = "product_search"
	ResearchTaskID  = "review_research"
	SynthesisTaskID = "recommendation"
)

// QueryInput 是任务模板中用户查询的占位符名
const QueryInput = "query"

// DefaultMaxQueryLength 是用户查询的默认长度上限
const DefaultMaxQueryLength = 2000

// ProductExpert 产品专家
var ProductExpert = crews.Role{
	Name:            "Product Expert",
	Goal:            "Help users understand products and suggest options based on features and specifications",
	Backstory:       "You are a retail domain expert specializing in performance footwear. You have deep knowledge of product features, materials, and technical specifications. You provide accurate product recommendations based on customer needs.",
	AllowDelegation: true,
}

// ProductResearcher 评测研究员
var ProductResearcher = crews.Role{
	Name:            "Product Researcher",
	Goal:            "Find and analyze product reviews, ratings, and customer feedback",
	Backstory:       "You are an expert researcher who excels at finding product reviews and customer feedback. You analyze sentiment, identify common praise and complaints, and summarize findings to help customers make informed decisions.",
	AllowDelegation: true,
}

// ResearchCoordinator 研究协调人，层级模式下的管理者
var ResearchCoordinator = crews.Role{
	Name:            "Research Coordinator",
	Goal:            "Coordinate product research efforts and ensure comprehensive, high-quality responses",
	Backstory:       "You are a senior analyst who coordinates research teams. You ensure that product recommendations are backed by both expert knowledge and real customer feedback. You synthesize information from multiple sources to provide the best possible guidance to customers.",
	AllowDelegation: true,
}

// Tasks 返回三个任务模板：产品检索、评测研究、综合推荐
func Tasks(guardrailMaxRetries int) []crews.Task {
	return []crews.Task{
		{
			ID:   ProductTaskID,
			Name: "Product search",
			Description: "Identify products from our catalog that match the user's request:\n" +
				"\"{query}\"\n\n" +
				"Provide the product names, key features, and prices.",
			ExpectedOutput:      "A list of products matching '{query}' with their features and prices.",
			AssignedTo:          ProductExpertID,
			Guardrail:           guardrails.ValidateProductResponse,
			GuardrailMaxRetries: guardrailMaxRetries,
		},
		{
			ID:   ResearchTaskID,
			Name: "Review research",
			Description: "Research customer reviews and feedback for products matching:\n" +
				"\"{query}\"\n\n" +
				"Focus on:\n" +
				"- Common praise points (quality, durability, value)\n" +
				"- Common complaints or issues\n" +
				"- Overall customer satisfaction ratings\n\n" +
				"Provide a summary of findings that would help a customer make a decision.",
			ExpectedOutput:      "A summary of customer reviews highlighting pros, cons, and ratings for '{query}'.",
			AssignedTo:          ProductResearcherID,
			Guardrail:           guardrails.ValidateResearchResponse,
			GuardrailMaxRetries: guardrailMaxRetries,
		},
		{
			ID:   SynthesisTaskID,
			Name: "Final recommendation",
			Description: "Combine the product recommendations and research findings to provide\n" +
				"a final recommendation for the user's request: \"{query}\"\n\n" +
				"Consider:\n" +
				"- Product features and specifications\n" +
				"- Customer feedback and satisfaction\n" +
				"- Value for money\n\n" +
				"Provide a prioritized recommendation with clear reasoning.",
			ExpectedOutput: "A final recommendation combining product details with customer feedback, ranked by overall value.",
			AssignedTo:     ProductExpertID,
			Context:        []string{ProductTaskID, ResearchTaskID},
		},
	}
}

// Config 团队的模型与流程设置
type Config struct {
	Process             crews.ProcessType
	Model               string
	MaxTokens           int
	Temperature         float32
	Timeout             time.Duration
	GuardrailMaxRetries int
	// Tokenizer 为空时按模型选择
	Tokenizer tokenizer.Tokenizer
}

// NewCrew 组建购物助手团队：产品专家与评测研究员为成员，研究协调人为管理者
func NewCrew(cfg Config, provider llm.Provider, logger *zap.Logger, opts ...crews.Option) (*crews.Crew, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Process == "" {
		cfg.Process = crews.ProcessHierarchical
	}

	var agentOpts []agent.Option
	if cfg.Tokenizer != nil {
		agentOpts = append(agentOpts, agent.WithTokenizer(cfg.Tokenizer))
	}
	build := func(id string, role crews.Role) (*agent.Agent, error) {
		return agent.New(agent.Config{
			ID:          id,
			Role:        role,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, provider, logger, agentOpts...)
	}

	expert, err := build(ProductExpertID, ProductExpert)
	if err != nil {
		return nil, fmt.Errorf("build product expert: %w", err)
	}
	researcher, err := build(ProductResearcherID, ProductResearcher)
	if err != nil {
		return nil, fmt.Errorf("build product researcher: %w", err)
	}
	coordinator, err := build(ResearchCoordinatorID, ResearchCoordinator)
	if err != nil {
		return nil, fmt.Errorf("build research coordinator: %w", err)
	}

	crew := crews.NewCrew(crews.CrewConfig{
		Name:        "shopping-assistant",
		Description: "Product search, review research and recommendation for shoppers",
		Process:     cfg.Process,
	}, logger, opts...)
	crew.AddMember(expert, expert.Role())
	crew.AddMember(researcher, researcher.Role())
	crew.SetManager(coordinator, coordinator.Role())

	for _, task := range Tasks(cfg.GuardrailMaxRetries) {
		if err := crew.AddTask(task); err != nil {
			return nil, err
		}
	}
	return crew, nil
}

// Inputs 构造 Kickoff 所需的输入
func Inputs(query string) map[string]string {
	return map[string]string{QueryInput: query}
}

// ValidateQuery 校验用户查询：非空、长度上限与提示注入检测
func ValidateQuery(ctx context.Context, query string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultMaxQueryLength
	}
	query = strings.TrimSpace(query)
	result, err := guardrails.NewQueryValidator(maxLength).Validate(ctx, query)
	if err != nil {
		return types.NewError(types.ErrGuardrailsViolated, "query rejected").WithCause(err)
	}
	if !result.Valid {
		return types.NewError(types.ErrGuardrailsViolated, "query rejected: "+result.FirstMessage())
	}
	return nil
}

// AgentSummary 是控制台横幅中的成员说明
type AgentSummary struct {
	Name    string
	Summary string
}

// AgentSummaries 返回横幅中展示的成员列表
func AgentSummaries() []AgentSummary {
	return []AgentSummary{
		{Name: "Product Expert", Summary: "Recommends products based on specifications"},
		{Name: "Research Agent", Summary: "Analyzes customer reviews and feedback"},
		{Name: "Manager Agent", Summary: "Coordinates tasks and ensures quality"},
	}
}
