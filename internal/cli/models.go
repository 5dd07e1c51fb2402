/*
PURPOSE:
  Defines the 'models' subcommand.
  Helps debug connectivity and check the configured model exists.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Useful validation step before a full run.
  - Marking loaded models shows whether keep-alive is holding the model.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.GetModels() (via Engine)

ERROR HANDLING:
  - Returns the error if the host is unreachable.

USAGE:
  prompt-eval models --host http://gpu-box:11434
*/

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/daryltucker/prompt-eval/internal/engine"
)

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"list-models"},
		Short:   "List models available on the Ollama host",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			e := engine.New(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Querying %s...\n", e.BaseURL)

			models, err := e.GetModels(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tSTATUS\t")
			found := false
			for _, m := range models {
				status := ""
				if m.Loaded {
					status = fmt.Sprintf("loaded (%.1f GB VRAM)", float64(m.SizeVRAM)/1e9)
				}
				marker := " "
				if m.Name == cfg.Model {
					marker = "*"
					found = true
				}
				fmt.Fprintf(tw, "%s %s\t%.1f GB\t%s\t\n", marker, m.Name, float64(m.Size)/1e9, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !found {
				fmt.Fprintf(out, "\nConfigured model %q is not available on this host.\n", cfg.Model)
			}
			return nil
		},
	}
}
