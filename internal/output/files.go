package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	CSVFileName   = "results.csv"
	JSONLFileName = "results.jsonl"
)

// OpenFileSinks creates dir and opens results.csv and results.jsonl in it.
func OpenFileSinks(dir string) ([]Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	csvPath := filepath.Join(dir, CSVFileName)
	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}

	jsonPath := filepath.Join(dir, JSONLFileName)
	jsonWriter, err := NewJSONWriter(jsonPath)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}

	return []Sink{csvWriter, jsonWriter}, nil
}

// CloseAll closes every sink and joins their errors.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
