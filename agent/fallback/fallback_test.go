package fallback

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// scriptedRunner fails the first `failures` kickoffs, then succeeds.
type scriptedRunner struct {
	failures int
	err      error
	calls    int
	inputs   []map[string]string
}

func (r *scriptedRunner) Kickoff(_ context.Context, inputs map[string]string) (*crews.CrewOutput, error) {
	r.calls++
	r.inputs = append(r.inputs, inputs)
	if r.calls <= r.failures {
		return nil, r.err
	}
	return &crews.CrewOutput{Raw: "final recommendation"}, nil
}

type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

type countingRecorder struct {
	attempts  map[string]int
	fallbacks []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: map[string]int{}}
}

func (r *countingRecorder) RecordExecutionAttempt(status string) { r.attempts[status]++ }
func (r *countingRecorder) RecordFallback(t string)              { r.fallbacks = append(r.fallbacks, t) }

func TestExecuteWithFallback_SuccessFirstTry(t *testing.T) {
	runner := &scriptedRunner{}
	sleeps := &sleepLog{}
	var out bytes.Buffer

	outcome := ExecuteWithFallback(context.Background(), runner, map[string]string{"query": "shoes"},
		WithSleep(sleeps.sleep), WithOutput(&out), WithLogger(zap.NewNop()))

	require.True(t, outcome.Succeeded())
	assert.Equal(t, "final recommendation", outcome.Output.Raw)
	assert.Nil(t, outcome.Fallback)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, sleeps.delays)
	assert.Equal(t, map[string]string{"query": "shoes"}, runner.inputs[0])

	text := out.String()
	assert.Contains(t, text, "Execution attempt 1 of 2")
	assert.Contains(t, text, "Execution completed successfully!")
	assert.Contains(t, text, strings.Repeat("=", 50))
}

func TestExecuteWithFallback_RecoversAfterFailure(t *testing.T) {
	runner := &scriptedRunner{failures: 1, err: errors.New("flaky")}
	sleeps := &sleepLog{}
	rec := newCountingRecorder()
	var out bytes.Buffer

	outcome := ExecuteWithFallback(context.Background(), runner, nil,
		WithSleep(sleeps.sleep), WithOutput(&out), WithRecorder(rec))

	require.True(t, outcome.Succeeded())
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.delays)
	assert.Equal(t, map[string]int{"failure": 1, "success": 1}, rec.attempts)
	assert.Empty(t, rec.fallbacks)

	text := out.String()
	assert.Contains(t, text, "Attempt 1 failed: errorString: flaky")
	assert.Contains(t, text, strings.Repeat("!", 50))
	assert.Contains(t, text, "Retrying in 1 seconds...")
	assert.Contains(t, text, "Execution attempt 2 of 2")
}

func TestExecuteWithFallback_ExhaustedReturnsFallback(t *testing.T) {
	cause := &llm.Error{Code: llm.ErrUpstreamTimeout, Message: "upstream timed out", Retryable: true}
	runner := &scriptedRunner{failures: 10, err: cause}
	sleeps := &sleepLog{}
	rec := newCountingRecorder()
	var out bytes.Buffer

	outcome := ExecuteWithFallback(context.Background(), runner, nil,
		WithMaxRetries(3),
		WithFallbackType(TypeProductSearch),
		WithSleep(sleeps.sleep),
		WithOutput(&out),
		WithRecorder(rec))

	require.False(t, outcome.Succeeded())
	assert.Nil(t, outcome.Output)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, runner.calls)
	assert.Same(t, cause, outcome.Err)
	assert.Equal(t, TypeProductSearch, outcome.FallbackType)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays, "no wait after the final attempt")

	require.NotNil(t, outcome.Fallback)
	assert.False(t, outcome.Fallback.Success)
	assert.Equal(t, "We're experiencing technical difficulties. Please try again later.", outcome.Fallback.Message)
	assert.Equal(t, "LLM_UPSTREAM_TIMEOUT", outcome.Fallback.Data["error_type"])

	assert.Equal(t, 3, rec.attempts["failure"])
	assert.Equal(t, []string{TypeProductSearch}, rec.fallbacks)

	text := out.String()
	assert.Contains(t, text, strings.Repeat("#", 50))
	assert.Contains(t, text, "All retry attempts exhausted. Returning fallback response.")
	assert.Contains(t, text, "Last error: upstream timed out")
}

func TestExecuteWithFallback_Defaults(t *testing.T) {
	runner := &scriptedRunner{failures: 10, err: errors.New("down")}
	sleeps := &sleepLog{}

	outcome := ExecuteWithFallback(context.Background(), runner, map[string]string{},
		WithMaxRetries(0), WithSleep(sleeps.sleep))

	assert.Equal(t, DefaultMaxRetries, outcome.Attempts)
	assert.Equal(t, TypeGeneral, outcome.FallbackType)
	assert.Nil(t, outcome.Fallback.Data)
	assert.Nil(t, runner.inputs[0], "empty inputs are forwarded as no inputs")
}

func TestExecuteWithFallback_BaseDelay(t *testing.T) {
	runner := &scriptedRunner{failures: 10, err: errors.New("down")}
	sleeps := &sleepLog{}

	ExecuteWithFallback(context.Background(), runner, nil,
		WithMaxRetries(4), WithBaseDelay(10*time.Millisecond), WithSleep(sleeps.sleep))

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, sleeps.delays)
}

func TestExecuteWithFallback_BackoffKeepsDoublingForLargeBudgets(t *testing.T) {
	runner := &scriptedRunner{failures: 100, err: errors.New("down")}
	sleeps := &sleepLog{}

	ExecuteWithFallback(context.Background(), runner, nil,
		WithMaxRetries(20), WithSleep(sleeps.sleep))

	require.Len(t, sleeps.delays, 19)
	for i, d := range sleeps.delays {
		assert.Equal(t, time.Duration(1<<i)*time.Second, d, "wait after attempt %d", i)
	}
}

func TestMaxBackoff(t *testing.T) {
	assert.Equal(t, time.Second, maxBackoff(time.Second, 1))
	assert.Equal(t, time.Second, maxBackoff(time.Second, 2))
	assert.Equal(t, 4*time.Second, maxBackoff(time.Second, 4))
	assert.Equal(t, time.Duration(1<<18)*time.Second, maxBackoff(time.Second, 20))
	assert.Equal(t, maxBackoffCap, maxBackoff(time.Second, 200))
}

func TestExecuteWithFallback_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{failures: 10, err: errors.New("down")}

	outcome := ExecuteWithFallback(ctx, runner, nil,
		WithMaxRetries(5),
		WithFallbackType(TypeResearch),
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	require.False(t, outcome.Succeeded())
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, runner.calls)
	assert.EqualError(t, outcome.Err, "down")
	assert.Equal(t, "Unable to fetch product reviews at this time.", outcome.Fallback.Message)
}

func TestExecuteWithFallback_NilOutputIsFailure(t *testing.T) {
	runner := nilRunner{}
	outcome := ExecuteWithFallback(context.Background(), runner, nil,
		WithMaxRetries(1), WithSleep((&sleepLog{}).sleep))

	require.False(t, outcome.Succeeded())
	assert.Error(t, outcome.Err)
}

type nilRunner struct{}

func (nilRunner) Kickoff(context.Context, map[string]string) (*crews.CrewOutput, error) {
	return nil, nil
}

// For any retry budget and number of leading failures, the wrapper makes
// min(failures+1, budget) attempts, sleeps 2^i seconds between them and
// returns exactly one of output or fallback.
func TestExecuteWithFallback_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		budget := rapid.IntRange(1, 6).Draw(t, "budget")
		failures := rapid.IntRange(0, 8).Draw(t, "failures")

		runner := &scriptedRunner{failures: failures, err: errors.New("fail")}
		sleeps := &sleepLog{}
		outcome := ExecuteWithFallback(context.Background(), runner, nil,
			WithMaxRetries(budget), WithSleep(sleeps.sleep))

		wantAttempts := min(failures+1, budget)
		if outcome.Attempts != wantAttempts || runner.calls != wantAttempts {
			t.Fatalf("attempts=%d calls=%d want %d", outcome.Attempts, runner.calls, wantAttempts)
		}
		if len(sleeps.delays) != wantAttempts-1 {
			t.Fatalf("got %d sleeps, want %d", len(sleeps.delays), wantAttempts-1)
		}
		for i, d := range sleeps.delays {
			if want := time.Duration(1<<i) * time.Second; d != want {
				t.Fatalf("sleep %d = %v, want %v", i, d, want)
			}
		}
		if (outcome.Output == nil) == (outcome.Fallback == nil) {
			t.Fatalf("exactly one of output/fallback must be set: %+v", outcome)
		}
		if outcome.Succeeded() != (failures < budget) {
			t.Fatalf("succeeded=%v with failures=%d budget=%d", outcome.Succeeded(), failures, budget)
		}
	})
}

func TestLogTaskCompletion(t *testing.T) {
	var buf bytes.Buffer
	LogTaskCompletion(&buf, &crews.TaskOutput{
		Description: strings.Repeat("d", 150),
		Raw:         strings.Repeat("r", 250),
	})

	text := buf.String()
	assert.Contains(t, text, strings.Repeat("~", 50)+"\nTask Completed\n")
	assert.Contains(t, text, "Task: "+strings.Repeat("d", 100)+"...\n")
	assert.Contains(t, text, "Output preview: "+strings.Repeat("r", 200)+"...\n")
	assert.NotContains(t, text, strings.Repeat("d", 101))
}

func TestLogAgentStep(t *testing.T) {
	var buf bytes.Buffer
	StepLogger(&buf)(crews.StepOutput{Output: strings.Repeat("é", 120)})

	text := buf.String()
	assert.Contains(t, text, "[Step] Agent action recorded")
	assert.Contains(t, text, "[Step] Output: "+strings.Repeat("é", 100)+"...")
	assert.NotContains(t, text, strings.Repeat("é", 101))
}

func TestTaskLogger_ShortOutput(t *testing.T) {
	var buf bytes.Buffer
	TaskLogger(&buf)(&crews.TaskOutput{Description: "find shoes", Raw: "two pairs"})
	assert.Contains(t, buf.String(), "Task: find shoes...")
	assert.Contains(t, buf.String(), "Output preview: two pairs...")
}
