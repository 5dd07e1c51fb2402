/*
PURPOSE:
  High-level runner that evaluates prompt directories.
  For each input: render the template, generate, report.

REQUIREMENTS:
  User-specified:
  - Input text is trimmed of surrounding whitespace before rendering.
  - The first generation failure aborts the prompt directory. No retries.
  - "all" evaluates every subdirectory of the working directory.

  Implementation-discovered:
  - Failed inputs are still written to the result files with their error.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/prompt, internal/output, internal/engine (Generator)

ERROR HANDLING:
  - Discovery errors (not a directory, template, inputs) abort before any
    generation call.
  - Sink write errors are logged, not fatal.

USAGE:
  engine.Run(ctx, cfg, "./summarize", os.Stdout)
  engine.Run(ctx, cfg, "all", os.Stdout)

RELATED FILES:
  - internal/engine/client.go
  - internal/engine/dispatch.go
*/

package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/model"
	"github.com/daryltucker/prompt-eval/internal/output"
	"github.com/daryltucker/prompt-eval/internal/prompt"
)

// Runner evaluates prompt directories.
type Runner struct {
	Loader    *prompt.Loader
	Generator Generator
	Reporter  *output.Reporter
	Sinks     []output.Sink
	InputsDir string

	// OutputDir is never evaluated as a prompt directory.
	OutputDir string
}

// NewRunner creates a Runner using cfg for template and input discovery.
func NewRunner(cfg *config.Config, gen Generator, reporter *output.Reporter, sinks []output.Sink) *Runner {
	return &Runner{
		Loader:    prompt.NewLoader(cfg.TemplateExts),
		Generator: gen,
		Reporter:  reporter,
		Sinks:     sinks,
		InputsDir: cfg.InputsDir,
		OutputDir: cfg.OutputDir,
	}
}

// Run evaluates target, which is a prompt directory or config.AllSelector.
func Run(ctx context.Context, cfg *config.Config, target string, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if target != config.AllSelector {
		// Fail before opening result files or touching the server.
		if err := prompt.ValidateDir(target); err != nil {
			return err
		}
	}

	var sinks []output.Sink
	if cfg.OutputDir != "" {
		var err error
		sinks, err = output.OpenFileSinks(cfg.OutputDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := output.CloseAll(sinks); err != nil {
				output.Logger.Error().Err(err).Msg("Failed to close result files")
			}
		}()
	}

	r := NewRunner(cfg, New(cfg), output.NewReporter(stdout), sinks)

	if target == config.AllSelector {
		results, err := r.RunAll(ctx, ".", cfg.Workers)
		if err != nil {
			return err
		}
		return Summarize(results)
	}

	_, err := r.RunDir(ctx, target)
	return err
}

// RunDir evaluates every input of one prompt directory.
func (r *Runner) RunDir(ctx context.Context, dir string) ([]model.Result, error) {
	tpl, err := r.Loader.Load(dir)
	if err != nil {
		return nil, err
	}

	files, skipped, err := prompt.ListInputs(dir, r.InputsDir)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		output.Logger.Warn().Str("path", s).Msg("Skipping subdirectory in inputs")
	}

	output.Logger.Info().Str("dir", dir).Str("template", tpl.Path).Int("inputs", len(files)).Msg("Evaluating prompt")
	if err := r.Reporter.Directory(dir); err != nil {
		return nil, err
	}

	results := make([]model.Result, 0, len(files))
	for _, path := range files {
		res, err := r.evaluate(ctx, tpl, dir, path)
		r.record(res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", path, err)
		}

		if err := r.Reporter.Write(res); err != nil {
			return results, err
		}
		output.Logger.Debug().
			Str("input", path).
			Dur("total", res.TotalDuration).
			Int("eval_count", res.EvalCount).
			Msg("Input evaluated")
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) evaluate(ctx context.Context, tpl *prompt.Template, dir, path string) (model.Result, error) {
	res := model.Result{PromptDir: dir, InputPath: path}

	in, err := prompt.ReadInput(path)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	rendered, err := tpl.Render(strings.TrimSpace(in.Content))
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	gen, err := r.Generator.Generate(ctx, rendered)
	gen.PromptDir = dir
	gen.InputPath = path
	gen.Prompt = rendered
	if err != nil {
		gen.Error = err.Error()
		return gen, err
	}
	return gen, nil
}

func (r *Runner) record(res model.Result) {
	for _, s := range r.Sinks {
		if err := s.Write(res); err != nil {
			output.Logger.Error().Err(err).Str("input", res.InputPath).Msg("Failed to write result")
		}
	}
}
