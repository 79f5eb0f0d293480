package azure

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BaSui01/shopcrew/llm/providers"
	"github.com/BaSui01/shopcrew/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// DefaultAPIVersion 未配置 api-version 时使用的 GA 版本。
const DefaultAPIVersion = "2024-06-01"

// AzureProvider 实现 Azure OpenAI 提供者.
// 请求路由到部署而不是模型：/openai/deployments/{deployment}/chat/completions。
type AzureProvider struct {
	*openaicompat.Provider
	deployment string
}

// NewAzureProvider 创建新的 Azure OpenAI 提供者实例.
// cfg.BaseURL 为资源端点，cfg.Model 为部署名。
func NewAzureProvider(cfg providers.AzureOpenAIConfig, logger *zap.Logger) *AzureProvider {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	deployment := strings.TrimSpace(cfg.Model)

	p := &AzureProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:   "azure",
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			DefaultModel:   deployment,
			Timeout:        cfg.Timeout,
			EndpointPath:   fmt.Sprintf("/openai/deployments/%s/chat/completions", url.PathEscape(deployment)),
			ModelsEndpoint: "/openai/models",
			Query:          url.Values{"api-version": []string{apiVersion}},
		}, logger),
		deployment: deployment,
	}
	p.SetBuildHeaders(providers.APIKeyHeaders)
	return p
}

// Deployment 返回部署名。
func (p *AzureProvider) Deployment() string { return p.deployment }
