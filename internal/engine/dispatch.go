package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/model"
	"github.com/daryltucker/prompt-eval/internal/output"
)

// PromptDirs lists the non-hidden subdirectories of root, sorted by name.
func PromptDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt directories in %s: %w", root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dirs = append(dirs, filepath.Join(root, entry.Name()))
	}
	return dirs, nil
}

// sameDir reports whether a and b name the same directory.
func sameDir(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// RunAll evaluates every prompt directory under root, at most workers at a
// time. A failing directory never stops the others; each outcome is
// returned in the order of PromptDirs.
func (r *Runner) RunAll(ctx context.Context, root string, workers int) ([]model.DirResult, error) {
	dirs, err := PromptDirs(root)
	if err != nil {
		return nil, err
	}
	if r.OutputDir != "" {
		dirs = slices.DeleteFunc(dirs, func(d string) bool {
			return sameDir(d, r.OutputDir)
		})
	}
	if workers <= 0 {
		workers = config.DefaultWorkers()
	}
	output.Logger.Info().Int("dirs", len(dirs)).Int("workers", workers).Msg("Evaluating all prompt directories")

	results := make([]model.DirResult, len(dirs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, dir := range dirs {
		g.Go(func() error {
			results[i] = r.runIsolated(ctx, dir)
			return nil
		})
	}
	_ = g.Wait() // tasks report through results

	return results, nil
}

func (r *Runner) runIsolated(ctx context.Context, dir string) (out model.DirResult) {
	out.Dir = dir
	defer func() {
		if p := recover(); p != nil {
			output.Logger.Error().Str("dir", dir).Interface("panic", p).Bytes("stack", debug.Stack()).Msg("Prompt directory panicked")
			out.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	out.Results, out.Err = r.RunDir(ctx, dir)
	return out
}

// Summarize logs one line per directory and returns an error if any failed.
func Summarize(results []model.DirResult) error {
	failed := 0
	for _, res := range results {
		if res.OK() {
			output.Logger.Info().Str("dir", res.Dir).Int("inputs", len(res.Results)).Msg("Prompt directory complete")
			continue
		}
		failed++
		output.Logger.Error().Str("dir", res.Dir).Int("inputs_done", len(res.Results)).Err(res.Err).Msg("Prompt directory failed")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d prompt directories failed", failed, len(results))
	}
	return nil
}
