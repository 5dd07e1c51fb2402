/*
PURPOSE:
  Locates and parses the Jinja template of a prompt directory.

REQUIREMENTS:
  User-specified:
  - Exactly one template file per prompt directory, matched by extension.
  - Templates reference the input text as {{ input }}.
  - No HTML autoescaping: output is plain text for a model.

  Implementation-discovered:
  - Existing prompt suites are Jinja, so text/template cannot parse them.
  - Jinja drops a single trailing newline from the template by default;
    raw-mode completions depend on the prompt ending where the model
    should continue.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner)
  - Dependencies: github.com/nikolalohinski/gonja

ERROR HANDLING:
  - ErrNotADirectory, ErrMissingTemplate, ErrMultipleTemplates, wrapped with the path.
  - Parse errors are wrapped with the template path.

IMPLEMENTATION RULES:
  - Engine configuration is owned by the Loader, never the gonja package defaults.

USAGE:
  l := prompt.NewLoader([]string{".jinja"})
  tpl, err := l.Load("./summarize")
  text, err := tpl.Render("some input")
*/

package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nikolalohinski/gonja"
	gonjacfg "github.com/nikolalohinski/gonja/config"
	"github.com/nikolalohinski/gonja/exec"
	"github.com/nikolalohinski/gonja/loaders"
)

// InputVar is the template variable holding the input text.
const InputVar = "input"

// Loader finds and parses prompt templates.
type Loader struct {
	exts []string
	cfg  *gonjacfg.Config
}

// NewLoader returns a Loader that recognizes files ending in any of exts.
func NewLoader(exts []string) *Loader {
	cfg := gonjacfg.NewConfig()
	cfg.Autoescape = false

	return &Loader{
		exts: exts,
		cfg:  cfg,
	}
}

// Template is a parsed prompt template.
type Template struct {
	Path string
	tpl  *exec.Template
}

// Render substitutes input into the template.
func (t *Template) Render(input string) (string, error) {
	out, err := t.tpl.Execute(map[string]interface{}{InputVar: input})
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Path, err)
	}
	return out, nil
}

// ValidateDir fails with ErrNotADirectory unless dir exists and is a directory.
func ValidateDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}
	return nil
}

// Find returns the path of the single template file in dir.
func (l *Loader) Find(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list prompt directory %s: %w", dir, err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !l.matches(entry.Name()) {
			continue
		}
		matches = append(matches, entry.Name())
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s (want *%s): %w", dir, strings.Join(l.exts, ", *"), ErrMissingTemplate)
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%s has %s: %w", dir, strings.Join(matches, ", "), ErrMultipleTemplates)
	}
}

// Load finds and parses the template of a prompt directory.
func (l *Loader) Load(dir string) (*Template, error) {
	if err := ValidateDir(dir); err != nil {
		return nil, err
	}

	path, err := l.Find(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	// Includes resolve relative to the prompt directory.
	fsLoader, err := loaders.NewFileSystemLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to set template root %s: %w", dir, err)
	}
	env := gonja.NewEnvironment(l.cfg, fsLoader)

	tpl, err := env.FromString(trimTrailingNewline(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return &Template{Path: path, tpl: tpl}, nil
}

func (l *Loader) matches(name string) bool {
	for _, ext := range l.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func trimTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
