package prompt

import "errors"

var (
	// ErrNotADirectory is returned when a prompt path is missing or is a file.
	ErrNotADirectory = errors.New("prompt must be a directory")
	// ErrMissingTemplate is returned when a prompt directory has no template file.
	ErrMissingTemplate = errors.New("no template file found in prompt directory")
	// ErrMultipleTemplates is returned when more than one file could be the template.
	ErrMultipleTemplates = errors.New("more than one template file found in prompt directory")
	// ErrMissingInputDirectory is returned when the inputs subdirectory is absent.
	ErrMissingInputDirectory = errors.New("inputs directory not found")
)
