package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIConfig OpenAI Provider 配置
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// AzureOpenAIConfig Azure OpenAI Provider 配置
// BaseURL 为资源端点（https://<resource>.openai.azure.com），Model 为部署名。
type AzureOpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	APIVersion         string `json:"api_version" yaml:"api_version"`
}
