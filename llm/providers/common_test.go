package providers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/shopcrew/llm"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		msg           string
		expectedCode  llm.ErrorCode
		expectedRetry bool
	}{
		{"401 unauthorized", http.StatusUnauthorized, "Invalid API key", llm.ErrUnauthorized, false},
		{"403 forbidden", http.StatusForbidden, "Access denied", llm.ErrForbidden, false},
		{"429 rate limited", http.StatusTooManyRequests, "Rate limit exceeded", llm.ErrRateLimited, true},
		{"400 invalid request", http.StatusBadRequest, "Missing required field: messages", llm.ErrInvalidRequest, false},
		{"400 quota", http.StatusBadRequest, "Your QUOTA has been exceeded", llm.ErrQuotaExceeded, false},
		{"400 credit", http.StatusBadRequest, "Insufficient credit balance", llm.ErrQuotaExceeded, false},
		{"400 content filter", http.StatusBadRequest, "filtered (code: content_filter)", llm.ErrContentFiltered, false},
		{"400 content policy", http.StatusBadRequest, "triggering Azure OpenAI's content management policy", llm.ErrContentFiltered, false},
		{"408 timeout", http.StatusRequestTimeout, "timeout", llm.ErrUpstreamTimeout, true},
		{"504 timeout", http.StatusGatewayTimeout, "gateway timeout", llm.ErrUpstreamTimeout, true},
		{"502 bad gateway", http.StatusBadGateway, "bad gateway", llm.ErrUpstreamError, true},
		{"503 unavailable", http.StatusServiceUnavailable, "unavailable", llm.ErrUpstreamError, true},
		{"529 overloaded", 529, "overloaded", llm.ErrModelOverloaded, true},
		{"500 internal", http.StatusInternalServerError, "oops", llm.ErrUpstreamError, true},
		{"404 not found", http.StatusNotFound, "deployment not found", llm.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "azure")
			assert.Equal(t, tt.expectedCode, err.Code)
			assert.Equal(t, tt.expectedRetry, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, tt.msg, err.Message)
			assert.Equal(t, "azure", err.Provider)
			assert.Equal(t, string(tt.expectedCode), err.Kind())
		})
	}
}

// 任意 5xx（529 除外）都映射为可重试的上游错误
func TestProperty_MapHTTPError_ServerErrorsRetryable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		status := rapid.IntRange(500, 599).Filter(func(s int) bool {
			return s != http.StatusGatewayTimeout && s != 529
		}).Draw(rt, "status")
		msg := rapid.String().Draw(rt, "msg")

		err := MapHTTPError(status, msg, "p")
		assert.True(t, err.Retryable)
		assert.Equal(t, llm.ErrUpstreamError, err.Code)
		assert.Equal(t, status, err.HTTPStatus)
	})
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"with type", `{"error":{"message":"bad key","type":"invalid_request_error"}}`, "bad key (type: invalid_request_error)"},
		{"with string code", `{"error":{"message":"filtered","code":"content_filter"}}`, "filtered (code: content_filter)"},
		{"numeric code ignored", `{"error":{"message":"oops","code":500}}`, "oops"},
		{"plain text", "upstream exploded", "upstream exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadErrorMessage(strings.NewReader(tt.body)))
		})
	}
}

func TestConvertMessagesToOpenAI(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "persona"},
		{Role: llm.RoleUser, Content: "你好 🌍", Name: "shopper"},
		{Role: llm.RoleAssistant, Content: ""},
	}
	out := ConvertMessagesToOpenAI(msgs)
	assert.Equal(t, []OpenAICompatMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "你好 🌍", Name: "shopper"},
		{Role: "assistant"},
	}, out)
}

func TestToLLMChatResponse(t *testing.T) {
	oa := OpenAICompatResponse{
		ID:    "id-1",
		Model: "gpt-4o",
		Choices: []OpenAICompatChoice{
			{Index: 0, FinishReason: "stop", Message: OpenAICompatMessage{Role: "assistant", Content: "answer"}},
		},
		Usage: &OpenAICompatUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}
	resp := ToLLMChatResponse(oa, "azure")
	assert.Equal(t, "id-1", resp.ID)
	assert.Equal(t, "azure", resp.Provider)
	assert.Equal(t, "answer", resp.FirstContent())
	assert.Equal(t, llm.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	empty := ToLLMChatResponse(OpenAICompatResponse{}, "azure")
	assert.Empty(t, empty.FirstContent())
	assert.Zero(t, empty.Usage.TotalTokens)
}

func TestAuthHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	BearerTokenHeaders(r, "k1")
	assert.Equal(t, "Bearer k1", r.Header.Get("Authorization"))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	APIKeyHeaders(r, "k2")
	assert.Equal(t, "k2", r.Header.Get("api-key"))
	assert.Empty(t, r.Header.Get("Authorization"))
}
