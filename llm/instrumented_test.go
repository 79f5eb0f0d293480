package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	resp *ChatResponse
	err  error
}

func (s *stubProvider) Completion(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) HealthCheck(_ context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

func (s *stubProvider) Name() string { return "stub" }

type recordedCall struct {
	provider, model, status string
	prompt, completion      int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) RecordLLMRequest(provider, model, status string, _ time.Duration, promptTokens, completionTokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{provider, model, status, promptTokens, completionTokens})
}

func TestInstrumentedProvider_Success(t *testing.T) {
	rec := &fakeRecorder{}
	inner := &stubProvider{resp: &ChatResponse{
		Model:   "gpt-4o-2024",
		Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: "hi"}}},
		Usage:   ChatUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
	}}
	p := NewInstrumentedProvider(inner, rec, zap.NewNop())

	resp, err := p.Completion(context.Background(), &ChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.FirstContent())
	assert.Equal(t, "stub", p.Name())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{"stub", "gpt-4o-2024", "success", 7, 3}, rec.calls[0])
}

func TestInstrumentedProvider_Error(t *testing.T) {
	rec := &fakeRecorder{}
	inner := &stubProvider{err: &Error{Code: ErrUpstreamError, Message: "boom", Retryable: true}}
	p := NewInstrumentedProvider(inner, rec, nil)

	_, err := p.Completion(context.Background(), &ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, "LLM_UPSTREAM_ERROR", llmErr.Kind())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "error", rec.calls[0].status)
	assert.Equal(t, "gpt-4o", rec.calls[0].model)
}

func TestInstrumentedProvider_NilRecorder(t *testing.T) {
	inner := &stubProvider{resp: &ChatResponse{}}
	p := NewInstrumentedProvider(inner, nil, nil)

	resp, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "", resp.FirstContent())

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestChatResponse_FirstContent_Nil(t *testing.T) {
	var resp *ChatResponse
	assert.Equal(t, "", resp.FirstContent())
}
