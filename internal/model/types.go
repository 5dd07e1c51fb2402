/*
PURPOSE:
  Defines the core data structures used throughout prompt-eval.
  A Result is one rendered input sent through the model.

REQUIREMENTS:
  User-specified:
  - Record total and load time, prompt/eval token counts and durations.
  - Derive tokens-per-second for prompt evaluation and generation.

  Implementation-discovered:
  - Need JSON tags for the JSON Lines sink.
  - Server durations arrive as integer nanoseconds; time.Duration keeps them exact.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output

ERROR HANDLING:
  - Throughput helpers return 0 for a zero duration instead of dividing by zero.

USAGE:
  res := model.Result{...}
  res.PromptTokensPerSecond()

RELATED FILES:
  - internal/output/report.go
  - internal/output/csv.go
*/

package model

import (
	"time"
)

// Result represents the outcome of a single input rendered and generated.
type Result struct {
	PromptDir string    `json:"prompt_dir"`
	InputPath string    `json:"input_path"`
	Model     string    `json:"model"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	// Duration is the client-side wall time of the request.
	Duration time.Duration `json:"duration"`

	Prompt   string `json:"prompt"`
	Response string `json:"response"`

	TotalDuration      time.Duration `json:"total_duration"`
	LoadDuration       time.Duration `json:"load_duration"`
	PromptEvalCount    int           `json:"prompt_eval_count"`
	PromptEvalDuration time.Duration `json:"prompt_eval_duration"`
	EvalCount          int           `json:"eval_count"`
	EvalDuration       time.Duration `json:"eval_duration"`

	Error string `json:"error,omitempty"`
}

// PromptTokensPerSecond is prompt_eval_count / prompt_eval_duration in seconds.
func (r Result) PromptTokensPerSecond() float64 {
	return tokensPerSecond(r.PromptEvalCount, r.PromptEvalDuration)
}

// EvalTokensPerSecond is eval_count / eval_duration in seconds.
func (r Result) EvalTokensPerSecond() float64 {
	return tokensPerSecond(r.EvalCount, r.EvalDuration)
}

func tokensPerSecond(count int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}

// DirResult is the outcome of evaluating one prompt directory.
type DirResult struct {
	Dir     string
	Results []Result
	Err     error
}

// OK reports whether the directory ran to completion.
func (d DirResult) OK() bool { return d.Err == nil }
