// Package openaicompat provides a shared base implementation for
// OpenAI-compatible chat completion providers.
//
// Providers that speak the OpenAI Chat Completions format embed
// openaicompat.Provider and only override what differs:
//
//   - Provider name and default model
//   - Base URL, endpoint path and query parameters
//   - Custom headers (if any)
//   - Request hooks for provider-specific fields
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "openai",
//	    APIKey:        cfg.APIKey,
//	    BaseURL:       "https://api.openai.com",
//	    DefaultModel:  cfg.Model,
//	    FallbackModel: "gpt-4o-mini",
//	}, logger)
package openaicompat
