package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/model"
	"github.com/daryltucker/prompt-eval/internal/output"
	"github.com/daryltucker/prompt-eval/internal/prompt"
)

// fakeGenerator echoes a canned response and records every prompt.
type fakeGenerator struct {
	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
	fail    func(prompt string) error
}

func (f *fakeGenerator) Generate(_ context.Context, p string) (model.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(p); err != nil {
			return model.Result{}, err
		}
	}
	return model.Result{
		Response:           " // done",
		TotalDuration:      5 * time.Second,
		LoadDuration:       time.Second,
		PromptEvalCount:    100,
		PromptEvalDuration: 2 * time.Second,
		EvalCount:          10,
		EvalDuration:       time.Second,
	}, nil
}

// recordingSink keeps every result it is given.
type recordingSink struct {
	mu      sync.Mutex
	results []model.Result
}

func (s *recordingSink) Write(r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// makePromptDir builds dir/<name>.jinja and dir/inputs/<file> for each input.
func makePromptDir(t *testing.T, dir, tpl string, inputs map[string]string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, filepath.Base(dir)+".jinja"), tpl)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs"), 0o755))
	for name, content := range inputs {
		writeFile(t, filepath.Join(dir, "inputs", name), content)
	}
}

func newTestRunner(gen Generator, stdout *bytes.Buffer, sinks ...output.Sink) *Runner {
	return NewRunner(config.DefaultConfig(), gen, output.NewReporter(stdout), sinks)
}

func TestRunDir_RendersTrimmedInput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "complete")
	makePromptDir(t, dir, "Complete:\n```go\n{{ input }}\n", map[string]string{
		"a.go": "\n\n  func add(a, b int) int {  \n\n",
	})

	gen := &fakeGenerator{}
	var stdout bytes.Buffer
	sink := &recordingSink{}

	results, err := newTestRunner(gen, &stdout, sink).RunDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := "Complete:\n```go\nfunc add(a, b int) int {"
	require.Equal(t, []string{want}, gen.prompts)
	require.Equal(t, want, results[0].Prompt)
	require.Equal(t, dir, results[0].PromptDir)
	require.Equal(t, filepath.Join(dir, "inputs", "a.go"), results[0].InputPath)
	require.Equal(t, 50.0, results[0].PromptTokensPerSecond())

	report := stdout.String()
	require.True(t, strings.HasPrefix(report, output.Center(dir, output.DividerWidth, '=')+"\n"))
	require.Contains(t, report, want+" // done\n")
	require.Contains(t, report, "Total time: 5.00 seconds\n")
	require.Contains(t, report, "Loaded model in 1.00 seconds\n")
	require.Contains(t, report, "Evaluated prompt at 50.00 tokens per second (100 tokens)\n")
	require.Contains(t, report, "Evaluated response at 10.00 tokens per second (10 tokens)\n")

	require.Len(t, sink.results, 1)
}

func TestRunDir_EvaluatesInputsInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	makePromptDir(t, dir, "{{ input }}", map[string]string{
		"2.txt": "two",
		"1.txt": "one",
		"3.txt": "three",
	})

	gen := &fakeGenerator{}
	_, err := newTestRunner(gen, &bytes.Buffer{}).RunDir(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, gen.prompts)
}

func TestRunDir_MissingInputsDoesNotCallGenerator(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.jinja"), "{{ input }}")

	gen := &fakeGenerator{}
	var stdout bytes.Buffer
	_, err := newTestRunner(gen, &stdout).RunDir(context.Background(), dir)

	require.ErrorIs(t, err, prompt.ErrMissingInputDirectory)
	require.Zero(t, gen.calls.Load())
	require.Empty(t, stdout.String())
}

func TestRunDir_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inputs", "a.txt"), "x")

	gen := &fakeGenerator{}
	_, err := newTestRunner(gen, &bytes.Buffer{}).RunDir(context.Background(), dir)
	require.ErrorIs(t, err, prompt.ErrMissingTemplate)
	require.Zero(t, gen.calls.Load())
}

func TestRunDir_GenerationFailureAborts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	makePromptDir(t, dir, "{{ input }}", map[string]string{
		"1.txt": "ok",
		"2.txt": "bad",
		"3.txt": "never",
	})

	gen := &fakeGenerator{fail: func(p string) error {
		if p == "bad" {
			return fmt.Errorf("%w: connection refused", ErrGenerationService)
		}
		return nil
	}}
	sink := &recordingSink{}

	results, err := newTestRunner(gen, &bytes.Buffer{}, sink).RunDir(context.Background(), dir)
	require.ErrorIs(t, err, ErrGenerationService)
	require.ErrorContains(t, err, "2.txt")
	require.Len(t, results, 1)
	require.EqualValues(t, 2, gen.calls.Load())

	// the failed input is still recorded, with its error
	require.Len(t, sink.results, 2)
	require.Empty(t, sink.results[0].Error)
	require.Contains(t, sink.results[1].Error, "connection refused")
	require.Equal(t, "bad", sink.results[1].Prompt)
}

func TestRun_FileTargetFailsBeforeDiscovery(t *testing.T) {
	file := filepath.Join(t.TempDir(), "prompt.jinja")
	writeFile(t, file, "{{ input }}")

	cfg := config.DefaultConfig()
	// unreachable host: any generation attempt would fail differently
	cfg.Host = "http://127.0.0.1:1"
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	err := Run(context.Background(), cfg, file, &stdout)
	require.ErrorIs(t, err, prompt.ErrNotADirectory)
	require.Empty(t, stdout.String())

	_, statErr := os.Stat(cfg.OutputDir)
	require.True(t, errors.Is(statErr, os.ErrNotExist), "result files must not be created")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NumCtx = 0

	err := Run(context.Background(), cfg, t.TempDir(), &bytes.Buffer{})
	require.ErrorContains(t, err, "invalid configuration")
}
