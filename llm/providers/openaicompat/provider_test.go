package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		logger       *zap.Logger
		wantEndpoint string
		wantModels   string
		wantName     string
	}{
		{
			name:         "all defaults applied",
			cfg:          Config{ProviderName: "test"},
			logger:       nil,
			wantEndpoint: "/v1/chat/completions",
			wantModels:   "/v1/models",
			wantName:     "test",
		},
		{
			name: "custom endpoint paths preserved",
			cfg: Config{
				ProviderName:   "custom",
				EndpointPath:   "/api/chat",
				ModelsEndpoint: "/api/models",
			},
			logger:       zap.NewNop(),
			wantEndpoint: "/api/chat",
			wantModels:   "/api/models",
			wantName:     "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, tt.logger)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantModels, p.Cfg.ModelsEndpoint)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotNil(t, p.Client)
			assert.NotNil(t, p.Logger)
		})
	}
}

func TestNew_TimeoutDefault(t *testing.T) {
	p := New(Config{ProviderName: "t"}, nil)
	assert.Equal(t, 30*time.Second, p.Client.Timeout)
}

func TestNew_TimeoutCustom(t *testing.T) {
	p := New(Config{ProviderName: "t", Timeout: 10 * time.Second}, nil)
	assert.Equal(t, 10*time.Second, p.Client.Timeout)
}

func TestProvider_Endpoint(t *testing.T) {
	p := New(Config{ProviderName: "t", BaseURL: "https://example.com/"}, nil)
	assert.Equal(t, "https://example.com/v1/chat/completions", p.endpoint(p.Cfg.EndpointPath))

	p.Cfg.Query = url.Values{"api-version": []string{"2024-06-01"}}
	assert.Equal(t, "https://example.com/v1/chat/completions?api-version=2024-06-01", p.endpoint(p.Cfg.EndpointPath))
}

// ---------------------------------------------------------------------------
// SetBuildHeaders
// ---------------------------------------------------------------------------

func TestSetBuildHeaders(t *testing.T) {
	p := New(Config{ProviderName: "test", APIKey: "key"}, nil)

	called := false
	p.SetBuildHeaders(func(r *http.Request, apiKey string) {
		called = true
		r.Header.Set("X-Custom", "yes")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	p.buildHeaders(req, "key")
	assert.True(t, called)
	assert.Equal(t, "yes", req.Header.Get("X-Custom"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func okResponse(content string) providers.OpenAICompatResponse {
	return providers.OpenAICompatResponse{
		ID:    "resp-1",
		Model: "gpt-test",
		Choices: []providers.OpenAICompatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      providers.OpenAICompatMessage{Role: "assistant", Content: content},
			},
		},
		Usage: &providers.OpenAICompatUsage{
			PromptTokens:     5,
			CompletionTokens: 2,
			TotalTokens:      7,
		},
		Created: 1700000000,
	}
}

func TestProvider_Completion_Success(t *testing.T) {
	var body providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("Hello!"))
	}))
	t.Cleanup(server.Close)

	p := New(Config{
		ProviderName:  "test",
		APIKey:        "test-key",
		BaseURL:       server.URL,
		FallbackModel: "fallback-model",
	}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		TraceID:     "trace-1",
		Temperature: 0.7,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "Hi"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, "Hello!", resp.FirstContent())
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())

	assert.Equal(t, "fallback-model", body.Model)
	assert.Equal(t, "trace-1", body.User)
	assert.InDelta(t, 0.7, body.Temperature, 1e-6)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
}

func TestProvider_Completion_EmptyMessages(t *testing.T) {
	p := New(Config{ProviderName: "test"}, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrInvalidRequest, llmErr.Code)
	assert.False(t, llmErr.Retryable)
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		wantCode      llm.ErrorCode
		wantRetryable bool
	}{
		{
			name:       "401 unauthorized",
			statusCode: http.StatusUnauthorized,
			body:       `{"error":{"message":"invalid key","type":"auth"}}`,
			wantCode:   llm.ErrUnauthorized,
		},
		{
			name:          "429 rate limited",
			statusCode:    http.StatusTooManyRequests,
			body:          `{"error":{"message":"slow down"}}`,
			wantCode:      llm.ErrRateLimited,
			wantRetryable: true,
		},
		{
			name:       "400 content filter",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"message":"blocked","code":"content_filter"}}`,
			wantCode:   llm.ErrContentFiltered,
		},
		{
			name:          "500 server error",
			statusCode:    http.StatusInternalServerError,
			body:          `{"error":{"message":"oops"}}`,
			wantCode:      llm.ErrUpstreamError,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p := New(Config{
				ProviderName: "test",
				APIKey:       "key",
				BaseURL:      server.URL,
			}, zap.NewNop())

			_, err := p.Completion(context.Background(), &llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
			})
			require.Error(t, err)
			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.wantRetryable, llmErr.Retryable)
			assert.Equal(t, tt.statusCode, llmErr.HTTPStatus)
		})
	}
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "not json")
	}))
	t.Cleanup(server.Close)

	p := New(Config{
		ProviderName: "test",
		APIKey:       "key",
		BaseURL:      server.URL,
	}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.Error(t, err)
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
}

func TestProvider_Completion_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Timeout:  20 * time.Millisecond,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamTimeout, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestProvider_Completion_RequestHook(t *testing.T) {
	var receivedModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body providers.OpenAICompatRequest
		json.NewDecoder(r.Body).Decode(&body)
		receivedModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("ok"))
	}))
	t.Cleanup(server.Close)

	p := New(Config{
		ProviderName: "test",
		APIKey:       "key",
		BaseURL:      server.URL,
		DefaultModel: "default-model",
		RequestHook: func(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
			body.Model = "hooked-model"
		},
	}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hooked-model", receivedModel)
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestProvider_HealthCheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.True(t, status.Latency >= 0)
}

func TestProvider_HealthCheck_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	status, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Contains(t, err.Error(), "bad key")
}
