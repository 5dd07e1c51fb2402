/*
PURPOSE:
  Writes one JSON object per evaluated input to results.jsonl.

REQUIREMENTS:
  User-specified:
  - Machine-readable results next to the stdout report.

  Implementation-discovered:
  - Failed inputs are written too, with "error" set and the timing
    fields left at zero.
  - Durations stay integer nanoseconds, as the server reports them;
    the derived tokens per second are added so readers need no math.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner.record)
  - Consumes: internal/model.Result

ERROR HANDLING:
  - Returns error on file creation or encode failure.

USAGE:
  w, err := output.NewJSONWriter("results/results.jsonl")
  w.Write(result)
  w.Close()
*/

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/daryltucker/prompt-eval/internal/model"
)

// jsonRecord is a Result plus its derived throughput.
type jsonRecord struct {
	model.Result
	PromptTokensPerSecond float64 `json:"prompt_tokens_per_second"`
	EvalTokensPerSecond   float64 `json:"eval_tokens_per_second"`
}

// JSONWriter appends results to a JSON Lines file.
type JSONWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(f)
	// prompts are code; keep <, > and & readable
	enc.SetEscapeHTML(false)
	return &JSONWriter{file: f, enc: enc}, nil
}

// Write encodes res as a single line. Safe for concurrent use.
func (jw *JSONWriter) Write(res model.Result) error {
	rec := jsonRecord{
		Result:                res,
		PromptTokensPerSecond: res.PromptTokensPerSecond(),
		EvalTokensPerSecond:   res.EvalTokensPerSecond(),
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.enc.Encode(rec)
}

func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.file.Close()
}
