/*
PURPOSE:
  Defines the configuration structure and loading logic for prompt-eval.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Generation parameters default to the values the prompt suites were
    written against (qwen2.5-coder:32b, raw mode, 30m keep-alive,
    stop on a closing code fence, 1024 token context).

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs environment overrides (OLLAMA_HOST, PROMPT_EVAL_...), including
    values from a local .env file.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/prompt
  - Dependencies: gopkg.in/yaml.v3, github.com/joho/godotenv

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - A missing default config file is not an error (defaults are used).

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Zero RequestTimeout means no client-side timeout.

USAGE:
  cfg, err := config.Load("prompt_eval.yaml")

RELATED FILES:
  - internal/cli/root.go
*/

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultHost is where a local Ollama server listens unless told otherwise.
const DefaultHost = "http://localhost:11434"

// DefaultPort is used when a host without scheme or port is given.
const DefaultPort = "11434"

// AllSelector is the reserved prompt argument that evaluates every
// subdirectory of the working directory.
const AllSelector = "all"

// Config represents the full configuration for prompt-eval.
type Config struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	KeepAlive string `yaml:"keep_alive"`
	Raw       bool   `yaml:"raw"`
	NumCtx    int    `yaml:"num_ctx"`
	// Stop sequences end generation; the default cuts at a closing code fence.
	Stop []string `yaml:"stop"`

	InputsDir    string   `yaml:"inputs_dir"`
	TemplateExts []string `yaml:"template_exts"`

	// Workers bounds how many prompt directories run at once under "all".
	Workers        int           `yaml:"workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// OutputDir enables results.csv / results.jsonl when set.
	OutputDir string `yaml:"output_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Model:        "qwen2.5-coder:32b",
		KeepAlive:    "30m",
		Raw:          true,
		NumCtx:       1024,
		Stop:         []string{"```"},
		InputsDir:    "inputs",
		TemplateExts: []string{".jinja"},
		Workers:      DefaultWorkers(),
	}
}

// DefaultWorkers mirrors the usual thread-pool sizing heuristic:
// min(32, CPUs+4).
func DefaultWorkers() int {
	return min(32, runtime.NumCPU()+4)
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		for _, name := range []string{"prompt_eval.yaml", "prompt-eval.yaml", ".prompt-eval.yaml"} {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if present.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("OLLAMA_HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("PROMPT_EVAL_MODEL"); v != "" {
		c.Model = v
	}
	if v := getenv("PROMPT_EVAL_KEEP_ALIVE"); v != "" {
		c.KeepAlive = v
	}
	if v := getenv("PROMPT_EVAL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PROMPT_EVAL_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	return nil
}

// BaseURL returns Host as a URL the client can dial. It accepts the forms
// OLLAMA_HOST takes: "host", "host:port", ":port" or a full URL. A missing
// port defaults to 11434 unless a scheme was given, and an empty or
// wildcard host means the local machine.
func (c *Config) BaseURL() string {
	raw := strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if raw == "" {
		return DefaultHost
	}

	scheme, rest, found := strings.Cut(raw, "://")
	port := DefaultPort
	switch {
	case !found:
		scheme, rest = "http", raw
	case scheme == "https":
		port = "443"
	default:
		port = "80"
	}

	hostport, path, _ := strings.Cut(rest, "/")
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		// no port
		host = strings.Trim(hostport, "[]")
	} else if p != "" {
		port = p
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port)}
	if path != "" {
		u.Path = "/" + path
	}
	return u.String()
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model must not be empty")
	}
	if c.NumCtx <= 0 {
		return fmt.Errorf("num_ctx must be positive, got %d", c.NumCtx)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.InputsDir == "" {
		return errors.New("inputs_dir must not be empty")
	}
	if len(c.TemplateExts) == 0 {
		return errors.New("template_exts must list at least one extension")
	}
	return nil
}
