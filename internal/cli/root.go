/*
PURPOSE:
  Defines the root Cobra command for the prompt-eval CLI.
  Handles global flags, logging setup and configuration loading.

REQUIREMENTS:
  User-specified:
  - `prompt-eval <prompt>` evaluates one prompt directory, or every
    subdirectory when <prompt> is "all".
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Flags must only override the config when explicitly set.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/prompt-eval/main.go
  - Calls: Child commands (run, models), internal/config, internal/output

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Precedence: defaults < config file < .env/environment < flags.

USAGE:
  Called by main.go.

RELATED FILES:
  - cmd/prompt-eval/main.go
  - internal/cli/run.go
*/

package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/output"
)

// options holds the flag values of one command tree.
type options struct {
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile  string
	logLevel string

	host      string
	model     string
	keepAlive string
	numCtx    int
	timeout   time.Duration

	workers   int
	outputDir string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "prompt-eval [prompt|all]",
		Short: "Evaluate prompt templates against a local Ollama server",
		Long: `Renders the Jinja template of a prompt directory with every file in its
inputs/ subdirectory, sends each prompt to Ollama and reports the generated
text with timing statistics.

A prompt directory holds exactly one *.jinja template and an inputs/ folder.
Pass "all" to evaluate every subdirectory of the working directory.
Use 'prompt-eval run' when a prompt directory shares a subcommand's name.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.SetLevel(opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runPrompt(cmd, opts, args[0])
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./prompt_eval.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&opts.host, "host", "", "Ollama URL (default OLLAMA_HOST or "+config.DefaultHost+")")
	root.PersistentFlags().StringVar(&opts.model, "model", "", "Model to generate with")
	root.PersistentFlags().StringVar(&opts.keepAlive, "keep-alive", "", "How long the server keeps the model loaded (e.g. 30m)")
	root.PersistentFlags().IntVar(&opts.numCtx, "num-ctx", 0, "Context window size in tokens")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (0 = none)")

	addRunFlags(root, opts)
	root.AddCommand(newRunCmd(opts), newModelsCmd(opts))
	return root
}

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.host
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("keep-alive") {
		cfg.KeepAlive = opts.keepAlive
	}
	if flags.Changed("num-ctx") {
		cfg.NumCtx = opts.numCtx
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = opts.timeout
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	return cfg, nil
}
