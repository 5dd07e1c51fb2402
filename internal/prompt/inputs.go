package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Input is one test case: a file under the inputs directory.
type Input struct {
	Path    string
	Content string
}

// ListInputs returns the paths of the files in dir/sub, in listing order.
// Subdirectories are returned separately so the caller can report them.
func ListInputs(dir, sub string) (files []string, skipped []string, err error) {
	inputDir := filepath.Join(dir, sub)

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", inputDir, ErrMissingInputDirectory)
		}
		return nil, nil, fmt.Errorf("failed to list inputs in %s: %w", inputDir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(inputDir, entry.Name())
		if entry.IsDir() {
			skipped = append(skipped, path)
			continue
		}
		files = append(files, path)
	}
	return files, skipped, nil
}

// ReadInput reads one input file.
func ReadInput(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read input %s: %w", path, err)
	}
	return Input{Path: path, Content: string(data)}, nil
}
