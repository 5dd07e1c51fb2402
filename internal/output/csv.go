/*
PURPOSE:
  Writes evaluation results to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Optional CSV output for comparing prompt revisions in a spreadsheet.

  Implementation-discovered:
  - Failed inputs are written too, with their error text.
  - Concurrent prompt directories share one writer under "all".

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Result

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Mutex guards concurrent writes.

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(result)
  w.Close()

RELATED FILES:
  - internal/model/types.go
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/prompt-eval/internal/model"
)

var csvHeader = []string{
	"prompt_dir", "input", "model", "url", "timestamp", "client_duration_s",
	"total_duration_s", "load_duration_s", "prompt_eval_s", "eval_duration_s",
	"prompt_tokens", "prompt_tokens_per_s", "eval_tokens", "eval_tokens_per_s",
	"response", "error",
}

// CSVWriter handles writing results to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single result to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.Result) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.PromptDir,
		r.InputPath,
		r.Model,
		r.URL,
		r.Timestamp.Format(time.RFC3339),
		fmt.Sprintf("%.4f", r.Duration.Seconds()),
		fmt.Sprintf("%.4f", r.TotalDuration.Seconds()),
		fmt.Sprintf("%.4f", r.LoadDuration.Seconds()),
		fmt.Sprintf("%.4f", r.PromptEvalDuration.Seconds()),
		fmt.Sprintf("%.4f", r.EvalDuration.Seconds()),
		strconv.Itoa(r.PromptEvalCount),
		fmt.Sprintf("%.2f", r.PromptTokensPerSecond()),
		strconv.Itoa(r.EvalCount),
		fmt.Sprintf("%.2f", r.EvalTokensPerSecond()),
		r.Response,
		r.Error,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	return cw.file.Close()
}
