// Command stepwise solves a task by driving an LLM through a
// step-execute-observe loop with access to a local terminal.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/stepwise/console"
	"github.com/martinemde/stepwise/llm"
	"github.com/martinemde/stepwise/shellproc"
	"github.com/martinemde/stepwise/taskloop"
)

type envConfig struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	MaxSteps        int    `env:"STEPWISE_MAX_STEPS" envDefault:"20"`
	MaxRetries      int    `env:"STEPWISE_MAX_RETRIES" envDefault:"2"`
	WorkingDir      string `env:"STEPWISE_WORKDIR"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		provider string
		model    string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "stepwise [task]",
		Short: "Solve a task step by step with an LLM and a terminal",
		Long: `stepwise gives an LLM a terminal and drives it through a
step-execute-observe loop until it declares the task complete. Commands
run locally; long-running commands continue as managed background
processes.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				var err error
				task, err = promptForTask(cmd)
				if err != nil {
					return err
				}
			}
			if task == "" {
				return fmt.Errorf("no task given")
			}
			return run(cmd, task, provider, model, debug)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "anthropic", "LLM provider (anthropic or openai)")
	cmd.Flags().StringVar(&model, "model", "", "model name (provider default when empty)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug output")
	return cmd
}

func promptForTask(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter a task: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading task: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(cmd *cobra.Command, task, provider, model string, debug bool) error {
	// Missing .env is fine; the environment may carry the keys directly.
	_ = godotenv.Load()

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	log, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	apiKey := cfg.AnthropicAPIKey
	if provider == "openai" {
		apiKey = cfg.OpenAIAPIKey
	}
	client, err := llm.NewGollmClient(provider, model, llm.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("creating %s client: %w", provider, err)
	}

	procs := shellproc.NewManager(shellproc.Config{WorkingDir: cfg.WorkingDir}, log)

	runner := taskloop.NewRunner(client, procs, taskloop.Config{
		MaxSteps:   cfg.MaxSteps,
		MaxRetries: cfg.MaxRetries,
		WorkingDir: cfg.WorkingDir,
	}, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := console.NewRenderer(cmd.OutOrStdout(), debug)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		renderer.Run(runner.Events())
	}()

	completed, err := runner.Solve(ctx, task)
	<-rendered
	if err != nil {
		return err
	}
	if !completed {
		log.Info("task did not complete within the step limit")
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
