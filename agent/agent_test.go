package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/agent/guardrails"
	"github.com/BaSui01/shopcrew/llm"
	"github.com/BaSui01/shopcrew/llm/tokenizer"
	"github.com/BaSui01/shopcrew/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type captureProvider struct {
	requests []*llm.ChatRequest
	content  string
	err      error
}

func (p *captureProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: p.content}}},
		Usage:   llm.ChatUsage{PromptTokens: 40, CompletionTokens: 12, TotalTokens: 52},
	}, nil
}

func (p *captureProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *captureProvider) Name() string { return "capture" }

func expertRole() crews.Role {
	return crews.Role{
		Name:            "Product Expert",
		Goal:            "Help users understand products",
		Backstory:       "You are a retail domain expert.",
		AllowDelegation: true,
	}
}

func newTestAgent(t *testing.T, p llm.Provider, cfg Config) *Agent {
	t.Helper()
	a, err := New(cfg, p, zap.NewNop(), WithTokenizer(tokenizer.NewEstimatorTokenizer("test", 8192)))
	require.NoError(t, err)
	return a
}

func TestNew_Defaults(t *testing.T) {
	a := newTestAgent(t, &captureProvider{}, Config{Role: expertRole(), Model: "gpt-4o"})

	assert.Equal(t, "product_expert", a.ID())
	assert.Equal(t, DefaultTemperature, a.Config().Temperature)
	assert.Equal(t, "Product Expert", a.Role().Name)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Role: expertRole()}, nil, nil)
	assert.Equal(t, types.ErrProviderNotSet, types.GetErrorCode(err))

	_, err = New(Config{}, &captureProvider{}, nil)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

func TestAgent_Execute(t *testing.T) {
	p := &captureProvider{content: "  Pegasus 41: responsive foam, $140  "}
	a := newTestAgent(t, p, Config{
		ID:          "expert",
		Role:        expertRole(),
		Model:       "gpt-4o",
		MaxTokens:   512,
		Temperature: 0.2,
		Timeout:     30 * time.Second,
	})

	res, err := a.Execute(context.Background(), crews.CrewTask{
		ID:          "product",
		Description: "Identify running shoes",
		Expected:    "A list of shoes",
		Context:     "earlier findings",
		Feedback:    "Response too brief.",
		Attempt:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Pegasus 41: responsive foam, $140", res.Output)
	assert.Equal(t, "product", res.TaskID)
	assert.Equal(t, "expert", res.AgentID)
	assert.Equal(t, 52, res.TokensUsed)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.Equal(t, 30*time.Second, req.Timeout)
	assert.Equal(t, "product", req.TraceID)
	assert.Equal(t, map[string]string{"agent": "expert", "task": "product"}, req.Metadata)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "You are Product Expert.")
	assert.Contains(t, req.Messages[0].Content, "Your personal goal is: Help users understand products")
	user := req.Messages[1].Content
	assert.Contains(t, user, "Current Task: Identify running shoes")
	assert.Contains(t, user, "A list of shoes")
	assert.Contains(t, user, "earlier findings")
	assert.Contains(t, user, "Response too brief.")
}

// guardrail 看到的是去掉首尾空白后的输出
func TestAgent_Execute_GuardrailSeesTrimmedOutput(t *testing.T) {
	body := strings.Repeat("x", 45)
	a := newTestAgent(t, &captureProvider{content: body + "\n\n\n\n\n\n"}, Config{Role: expertRole()})

	res, err := a.Execute(context.Background(), crews.CrewTask{ID: "product"})
	require.NoError(t, err)
	assert.Equal(t, body, res.Output)

	verdict := guardrails.ValidateProductResponse(context.Background(), res.Output)
	assert.False(t, verdict.Passed)
	assert.Equal(t, "Response too brief. Please provide more detailed information.", verdict.Feedback)
}

func TestAgent_Execute_Errors(t *testing.T) {
	upstream := &llm.Error{Code: llm.ErrUpstreamError, Message: "bad gateway", Retryable: true}

	t.Run("provider error is returned as is", func(t *testing.T) {
		a := newTestAgent(t, &captureProvider{err: upstream}, Config{Role: expertRole()})
		_, err := a.Execute(context.Background(), crews.CrewTask{ID: "t"})
		assert.True(t, errors.Is(err, upstream))
	})

	t.Run("blank output", func(t *testing.T) {
		a := newTestAgent(t, &captureProvider{content: " \n "}, Config{Role: expertRole()})
		_, err := a.Execute(context.Background(), crews.CrewTask{ID: "t"})
		assert.Equal(t, types.ErrEmptyOutput, types.GetErrorCode(err))
	})
}

func TestAgent_Execute_WarnsWhenPromptTooLong(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a, err := New(Config{Role: expertRole()}, &captureProvider{content: "ok"}, zap.New(core),
		WithTokenizer(tokenizer.NewEstimatorTokenizer("tiny", 5)))
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), crews.CrewTask{ID: "t", Description: "a fairly long description of the task"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("prompt exceeds model context window").Len())
}

func TestAgent_Negotiate(t *testing.T) {
	restricted := expertRole()
	restricted.AllowDelegation = false

	tests := []struct {
		name     string
		role     crews.Role
		proposal crews.Proposal
		accepted bool
	}{
		{
			name:     "delegation allowed",
			role:     expertRole(),
			proposal: crews.Proposal{Type: crews.ProposalTypeDelegate, Task: &crews.CrewTask{ID: "t"}},
			accepted: true,
		},
		{
			name:     "assigned task accepted without delegation",
			role:     restricted,
			proposal: crews.Proposal{Type: crews.ProposalTypeDelegate, Task: &crews.CrewTask{ID: "t", AssignedTo: "expert"}},
			accepted: true,
		},
		{
			name:     "unassigned task declined without delegation",
			role:     restricted,
			proposal: crews.Proposal{Type: crews.ProposalTypeDelegate, Task: &crews.CrewTask{ID: "t", AssignedTo: "other"}},
		},
		{
			name:     "missing task",
			role:     expertRole(),
			proposal: crews.Proposal{Type: crews.ProposalTypeDelegate},
		},
		{
			name:     "non-delegate proposal declined",
			role:     restricted,
			proposal: crews.Proposal{Type: "inform", Task: &crews.CrewTask{ID: "t", AssignedTo: "expert"}},
		},
		{
			name:     "unknown type",
			role:     expertRole(),
			proposal: crews.Proposal{Type: "vote"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAgent(t, &captureProvider{}, Config{ID: "expert", Role: tt.role})
			res, err := a.Negotiate(context.Background(), tt.proposal)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, res.Accepted)
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "product_expert", Slug("Product Expert"))
	assert.Equal(t, "research_coordinator", Slug("  Research-Coordinator "))
	assert.Equal(t, "", Slug("—"))
}

func TestTaskPrompt_OmitsEmptySections(t *testing.T) {
	p := TaskPrompt(crews.CrewTask{Description: "do it"})
	assert.NotContains(t, p, "context you're working with")
	assert.NotContains(t, p, "rejected")
	assert.NotContains(t, p, "expected criteria")
}
