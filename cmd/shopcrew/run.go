package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/shopcrew/agent/crews"
	"github.com/BaSui01/shopcrew/agent/fallback"
	"github.com/BaSui01/shopcrew/config"
	"github.com/BaSui01/shopcrew/shopping"
)

const bannerWidth = 60

type runFlags struct {
	query        string
	maxRetries   int
	fallbackType string
	process      string
}

func newRunCmd(configPath *string) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the shopping crew against a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, func(c *config.Config) {
				applyRunFlags(cmd, flags, c)
			})
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			_, err = a.run(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Shopping query (defaults to crew.query)")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 0, "Maximum kickoff attempts before falling back")
	cmd.Flags().StringVar(&flags.fallbackType, "fallback-type", "",
		"Fallback response type ("+strings.Join(fallback.Types(), ", ")+")")
	cmd.Flags().StringVar(&flags.process, "process", "", "Crew process (hierarchical, sequential)")
	return cmd
}

// applyRunFlags 只覆盖显式传入的参数
func applyRunFlags(cmd *cobra.Command, flags runFlags, cfg *config.Config) {
	if cmd.Flags().Changed("query") {
		cfg.Crew.Query = flags.query
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.Crew.MaxRetries = flags.maxRetries
	}
	if cmd.Flags().Changed("fallback-type") {
		cfg.Crew.FallbackType = flags.fallbackType
	}
	if cmd.Flags().Changed("process") {
		cfg.Crew.Process = flags.process
	}
}

// run 组建团队并在兜底保护下执行，结果写入 out
func (a *app) run(ctx context.Context, out io.Writer) (*fallback.Outcome, error) {
	cfg := a.cfg.Crew

	process, err := crews.ParseProcessType(cfg.Process)
	if err != nil {
		return nil, err
	}

	printIntro(out, process)

	if err := shopping.ValidateQuery(ctx, cfg.Query, cfg.MaxQueryLength); err != nil {
		return nil, err
	}

	taskLog := fallback.TaskLogger(out)
	crewOpts := []crews.Option{
		crews.WithTaskCallback(func(o *crews.TaskOutput) {
			taskLog(o)
			if a.collector != nil {
				a.collector.RecordTask(o.TaskID, o.Agent, o.Duration, o.TokensUsed)
			}
		}),
		crews.WithStepCallback(fallback.StepLogger(out)),
	}
	fallbackOpts := []fallback.Option{
		fallback.WithMaxRetries(cfg.MaxRetries),
		fallback.WithFallbackType(cfg.FallbackType),
		fallback.WithBaseDelay(cfg.BaseDelay),
		fallback.WithOutput(out),
		fallback.WithLogger(a.logger),
	}
	if a.collector != nil {
		crewOpts = append(crewOpts, crews.WithRecorder(a.collector))
		fallbackOpts = append(fallbackOpts, fallback.WithRecorder(a.collector))
	}

	crew, err := shopping.NewCrew(shopping.Config{
		Process:             process,
		Model:               a.cfg.LLM.Model,
		MaxTokens:           a.cfg.LLM.MaxTokens,
		Temperature:         float32(a.cfg.LLM.Temperature),
		Timeout:             a.cfg.LLM.Timeout,
		GuardrailMaxRetries: taskGuardrailRetries(cfg.GuardrailMaxRetries),
		Tokenizer:           a.tokenizer,
	}, a.provider, a.logger, crewOpts...)
	if err != nil {
		return nil, err
	}

	a.logger.Info("crew kickoff",
		zap.String("crew_id", crew.ID),
		zap.String("process", string(process)),
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.cfg.LLM.Model))

	outcome := fallback.ExecuteWithFallback(ctx, crew, shopping.Inputs(cfg.Query), fallbackOpts...)
	printResult(out, outcome)
	return outcome, nil
}

// taskGuardrailRetries 把配置值映射到 crews.Task：配置里 0 表示不重试，
// 而 Task 的 0 表示取默认值
func taskGuardrailRetries(configured int) int {
	if configured == 0 {
		return -1
	}
	return configured
}

func printIntro(w io.Writer, process crews.ProcessType) {
	line := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "\n%s\n", line)
	fmt.Fprintln(w, "Shopping Crew Multi-Agent Demo - "+processTitle(process)+" Orchestration")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "\nAgents:")
	for _, s := range shopping.AgentSummaries() {
		fmt.Fprintf(w, "  - %s: %s\n", s.Name, s.Summary)
	}
	if process == crews.ProcessHierarchical {
		fmt.Fprintln(w, "\nProcess: Hierarchical (Manager coordinates worker agents)")
	} else {
		fmt.Fprintln(w, "\nProcess: Sequential (tasks run in order, each sees the previous output)")
	}
	fmt.Fprintf(w, "%s\n\n", line)
}

func processTitle(process crews.ProcessType) string {
	if process == crews.ProcessSequential {
		return "Sequential"
	}
	return "Hierarchical"
}

func printResult(w io.Writer, outcome *fallback.Outcome) {
	line := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "\n%s\n", line)
	fmt.Fprintln(w, "FINAL RESULT")
	fmt.Fprintln(w, line)

	if outcome.Succeeded() {
		fmt.Fprintln(w, "\nStatus: SUCCESS")
		fmt.Fprintf(w, "\n%s\n", outcome.Output)
	} else {
		fmt.Fprintln(w, "\nStatus: FALLBACK ACTIVATED")
		fmt.Fprintf(w, "Message: %s\n", outcome.Fallback.Message)
		if len(outcome.Fallback.Data) > 0 {
			fmt.Fprintf(w, "Additional info: %s\n", fallback.FormatData(outcome.Fallback.Data))
		}
	}

	fmt.Fprintf(w, "\n%s\n", line)
}
