package openai

import (
	"net/http"

	"github.com/BaSui01/shopcrew/llm/providers"
	"github.com/BaSui01/shopcrew/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// OpenAIProvider 实现 OpenAI LLM 提供者.
// Chat Completions 由嵌入的 openaicompat.Provider 处理.
type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider 创建新的 OpenAI 提供者实例.
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	p := &OpenAIProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:  "openai",
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.Model,
			FallbackModel: "gpt-4o-mini",
			Timeout:       cfg.Timeout,
		}, logger),
	}

	// Organization 可选
	p.SetBuildHeaders(func(req *http.Request, apiKey string) {
		providers.BearerTokenHeaders(req, apiKey)
		if cfg.Organization != "" {
			req.Header.Set("OpenAI-Organization", cfg.Organization)
		}
	})

	return p
}
