/*
PURPOSE:
  Defines the 'run' subcommand.
  Evaluates one prompt directory, or all of them.

REQUIREMENTS:
  User-specified:
  - One positional argument: a prompt directory path or "all".
  - Exit before any discovery when the path is not a directory.

  Implementation-discovered:
  - Need to load config first, then apply flag overrides.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load fails or any prompt directory fails.

USAGE:
  prompt-eval run ./summarize
  prompt-eval run all --workers 4 -o ./results

RELATED FILES:
  - internal/cli/root.go
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/engine"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <prompt|all>",
		Short: "Evaluate a prompt directory (or all of them)",
		Long: `Evaluates a prompt directory:
1. Discovery: finds the single *.jinja template and the files in inputs/.
2. Rendering: each input, trimmed of surrounding whitespace, fills {{ input }}.
3. Generation: the prompt is sent to Ollama in raw mode.
4. Report: prompt, generated text, total/load time and tokens per second.

With "all", every subdirectory of the working directory is evaluated in
parallel. A failing directory does not stop the others; the command exits
non-zero if any failed.`,
		Example: `  # Evaluate one prompt directory
  prompt-eval run ./summarize

  # Evaluate every prompt directory, four at a time
  prompt-eval run all --workers 4

  # Use another model and keep CSV/JSONL results
  prompt-eval run ./summarize --model llama3.1:8b -o ./results`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, opts, args[0])
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVar(&opts.workers, "workers", config.DefaultWorkers(), "Prompt directories evaluated at once with \"all\"")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Write results.csv and results.jsonl to this directory")
}

func runPrompt(cmd *cobra.Command, opts *options, target string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	return engine.Run(cmd.Context(), cfg, target, cmd.OutOrStdout())
}
