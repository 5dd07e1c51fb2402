package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/prompt-eval/internal/output"
	"github.com/daryltucker/prompt-eval/internal/prompt"
)

func TestMain(m *testing.M) {
	output.SetLogger(zerolog.Nop())
	m.Run()
}

// fakeOllama serves /api/generate and /api/tags and counts generate calls.
func fakeOllama(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			calls.Add(1)
			w.Write([]byte(`{"response":"ok","done":true,"total_duration":5000000000,"load_duration":1000000000,"prompt_eval_count":100,"prompt_eval_duration":2000000000,"eval_count":4,"eval_duration":1000000000}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"qwen2.5-coder:32b","size":19800000000}]}`))
		case "/api/ps":
			w.Write([]byte(`{"models":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_HOST", "PROMPT_EVAL_MODEL", "PROMPT_EVAL_KEEP_ALIVE", "PROMPT_EVAL_WORKERS"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func makePromptDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.jinja"), []byte("Q: {{ input }}\nA:"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inputs", "one.txt"), []byte(" 2+2 \n"), 0o644))
}

func TestRun_FileArgument(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	require.NoError(t, os.WriteFile("file.jinja", []byte("{{ input }}"), 0o644))

	_, err := execute(t, "run", "file.jinja", "--host", srv.URL)
	require.ErrorIs(t, err, prompt.ErrNotADirectory)
	require.Zero(t, calls.Load())
}

func TestRun_SinglePrompt(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	makePromptDir(t, "math")

	out, err := execute(t, "run", "math", "--host", srv.URL)
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())
	require.Contains(t, out, "Q: 2+2\nA:ok\n")
	require.Contains(t, out, "Total time: 5.00 seconds")
	require.Contains(t, out, "Evaluated prompt at 50.00 tokens per second (100 tokens)")
}

func TestRoot_PositionalAlias(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	makePromptDir(t, "math")

	_, err := execute(t, "math", "--host", srv.URL)
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestRun_All(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	for _, name := range []string{"a", "b", "c"} {
		makePromptDir(t, name)
	}

	outDir := filepath.Join(t.TempDir(), "results")
	out, err := execute(t, "run", "all", "--host", srv.URL, "--workers", "2", "-o", outDir)
	require.NoError(t, err)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, 3, strings.Count(out, "Total time: 5.00 seconds"))

	data, err := os.ReadFile(filepath.Join(outDir, output.JSONLFileName))
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRun_AllWithOutputDirInWorkingDir(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	makePromptDir(t, "a")
	makePromptDir(t, "b")

	_, err := execute(t, "run", "all", "--host", srv.URL, "-o", "./results")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())

	data, err := os.ReadFile(filepath.Join("results", output.CSVFileName))
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRun_AllReportsFailures(t *testing.T) {
	isolateEnv(t)
	srv, calls := fakeOllama(t)
	makePromptDir(t, "good")
	require.NoError(t, os.MkdirAll(filepath.Join("broken", "inputs"), 0o755))

	_, err := execute(t, "run", "all", "--host", srv.URL)
	require.ErrorContains(t, err, "1 of 2 prompt directories failed")
	require.EqualValues(t, 1, calls.Load())
}

func TestRun_ConfigFileAndFlags(t *testing.T) {
	isolateEnv(t)
	var gotModel atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		gotModel.Store(body.String())
		w.Write([]byte(`{"response":"","done":true}`))
	}))
	t.Cleanup(srv.Close)

	makePromptDir(t, "math")
	require.NoError(t, os.WriteFile("prompt_eval.yaml", []byte("model: from-file\nhost: "+srv.URL+"\n"), 0o644))

	_, err := execute(t, "run", "math")
	require.NoError(t, err)
	require.Contains(t, gotModel.Load().(string), `"model":"from-file"`)

	_, err = execute(t, "run", "math", "--model", "from-flag")
	require.NoError(t, err)
	require.Contains(t, gotModel.Load().(string), `"model":"from-flag"`)
}

func TestNewRootCmd_IndependentFlags(t *testing.T) {
	isolateEnv(t)
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		got = append(got, req.Model)
		mu.Unlock()
		w.Write([]byte(`{"response":"","done":true}`))
	}))
	t.Cleanup(srv.Close)
	makePromptDir(t, "math")

	// both trees exist before either parses its flags
	first, second := NewRootCmd(), NewRootCmd()
	first.SetArgs([]string{"run", "math", "--host", srv.URL, "--model", "first"})
	second.SetArgs([]string{"run", "math", "--host", srv.URL, "--model", "second"})
	for _, c := range []*cobra.Command{first, second} {
		c.SetOut(&bytes.Buffer{})
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, c := range []*cobra.Command{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.ExecuteContext(context.Background())
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.ElementsMatch(t, []string{"first", "second"}, got)
}

func TestModels(t *testing.T) {
	isolateEnv(t)
	srv, _ := fakeOllama(t)

	out, err := execute(t, "models", "--host", srv.URL)
	require.NoError(t, err)
	require.Contains(t, out, "Querying "+srv.URL)
	require.Contains(t, out, "* qwen2.5-coder:32b")
	require.NotContains(t, out, "is not available")
}

func TestModels_ConfiguredModelMissing(t *testing.T) {
	isolateEnv(t)
	srv, _ := fakeOllama(t)

	out, err := execute(t, "models", "--host", srv.URL, "--model", "llama3.1:8b")
	require.NoError(t, err)
	require.Contains(t, out, `Configured model "llama3.1:8b" is not available`)
}

func TestInvalidLogLevel(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "models", "--log-level", "loud")
	require.ErrorContains(t, err, "invalid log level")
}
