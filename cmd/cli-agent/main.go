package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matdev83/cli-agent/agent"
	"github.com/matdev83/cli-agent/llm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		task          string
		provider      string
		model         string
		cwd           string
		responsesFile string
		maxTurns      int
		autoApprove   bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "cli-agent",
		Short: "A conversational agent that drives local development tools",
		Long: `cli-agent sends a task to a language model and executes the tool
invocations the model emits (shell commands, file reads and edits, searches)
until the model declares the task complete. Destructive commands require
interactive approval.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Provider = provider
			}
			if model != "" {
				cfg.Model = model
			}
			if cmd.Flags().Changed("max-turns") {
				cfg.MaxTurns = maxTurns
			}
			if cmd.Flags().Changed("auto-approve") {
				cfg.AutoApprove = autoApprove
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}

			if task == "" && len(args) > 0 {
				task = strings.Join(args, " ")
			}
			if task == "" {
				return fmt.Errorf("no task given: use --task or positional arguments")
			}

			return run(cmd.Context(), cfg, task, cwd, responsesFile)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task for the agent to perform")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai, anthropic, ...)")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for tool execution (default: current directory)")
	cmd.Flags().StringVar(&responsesFile, "responses-file", "", "JSON file of scripted model replies, replayed instead of a live backend")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 25, "maximum loop iterations before giving up")
	cmd.Flags().BoolVarP(&autoApprove, "auto-approve", "y", false, "skip confirmation for non-destructive tools")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, cfg *config, task, cwd, responsesFile string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr, cfg.Verbose)

	backend, err := buildBackend(cfg, responsesFile)
	if err != nil {
		return err
	}

	workspace := agent.NewLocalWorkspace(cwd)
	registry := agent.NewToolRegistry()

	// The executors only run inside session.Run, after the session exists.
	var session *agent.Session
	agent.RegisterCoreTools(registry, workspace, agent.CoreToolsOptions{
		DefaultCommandTimeoutMs: cfg.CommandTimeoutMs,
		MaxCommandTimeoutMs:     cfg.MaxCommandTimeoutMs,
		AskUser:                 agent.ConsoleAskUser,
		OnFileRead: func(path, content string) {
			session.RecordFileContext(path, content)
		},
	})

	sessionCfg := agent.DefaultSessionConfig()
	sessionCfg.MaxTurns = cfg.MaxTurns
	sessionCfg.AutoApprove = cfg.AutoApprove
	sessionCfg.DefaultCommandTimeoutMs = cfg.CommandTimeoutMs
	sessionCfg.MaxCommandTimeoutMs = cfg.MaxCommandTimeoutMs
	sessionCfg.SystemPrompt = agent.BuildSystemPrompt(registry, workspace)

	session = agent.NewSession(backend, registry, workspace, agent.NewConsoleConfirmer(), &sessionCfg, logger)

	task, inlined := agent.ExpandFileMentions(task, workspace)
	if len(inlined) > 0 {
		logger.Info("inlined mentioned files", "paths", inlined)
	}
	for _, path := range inlined {
		session.RecordFileTouched(path)
	}

	result, err := session.Run(ctx, task)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Println(result.FinalText)
	if result.StopReason == agent.StopTurnLimit {
		fmt.Fprintf(os.Stderr, "\nStopped after %d turns without completion.\n", result.Iterations)
	}
	if touched := session.FilesTouched(); len(touched) > 0 {
		fmt.Fprintf(os.Stderr, "\nFiles touched: %s\n", strings.Join(touched, ", "))
	}
	return nil
}

// buildBackend selects between a scripted replay backend and a live provider.
func buildBackend(cfg *config, responsesFile string) (llm.Backend, error) {
	if responsesFile != "" {
		scripted, err := llm.ScriptedBackendFromFile(responsesFile)
		if err != nil {
			return nil, err
		}
		return scripted, nil
	}
	apiKey := cfg.resolveAPIKey()
	if apiKey == "" {
		return nil, &llm.ConfigurationError{BackendError: llm.BackendError{
			Message: fmt.Sprintf("no API key: set CLI_AGENT_API_KEY or %s_API_KEY", strings.ToUpper(cfg.Provider)),
		}}
	}
	backend, err := llm.NewGollmBackend(cfg.Provider, cfg.Model, apiKey)
	if err != nil {
		return nil, err
	}
	return backend, nil
}
