/*
PURPOSE:
  Client for the Ollama HTTP API.
  Sends rendered prompts to /api/generate and lists models.

REQUIREMENTS:
  User-specified:
  - Synchronous, non-streaming generation with fixed parameters
    (model, raw mode, keep-alive, stop sequences, num_ctx).
  - Return generated text with durations and token counts.

  Implementation-discovered:
  - Raw mode bypasses the server-side chat template; the prompt is sent as is.
  - Ollama reports API failures both as non-200 statuses and as an
    "error" field in a 200 body.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner), internal/cli (models)
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - Every generation failure wraps ErrGenerationService.
  - No retries: a failed input aborts its prompt directory.

IMPLEMENTATION RULES:
  - Use net/http.
  - No client timeout unless request_timeout is configured.

USAGE:
  e := engine.New(cfg)
  res, err := e.Generate(ctx, prompt)
  models, err := e.GetModels(ctx)

SELF-HEALING INSTRUCTIONS:
  - If Ollama API changes, update endpoints (/api/tags, /api/ps, /api/generate).

RELATED FILES:
  - internal/config/config.go
  - internal/model/types.go
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/daryltucker/prompt-eval/internal/config"
	"github.com/daryltucker/prompt-eval/internal/model"
	"github.com/daryltucker/prompt-eval/internal/output"
)

// ErrGenerationService is wrapped by every failed generation call.
var ErrGenerationService = errors.New("generation service error")

// Generator turns a rendered prompt into a model response.
type Generator interface {
	Generate(ctx context.Context, prompt string) (model.Result, error)
}

// Engine handles Ollama interactions.
type Engine struct {
	Config  *config.Config
	Client  *http.Client
	BaseURL string
}

// New creates a new Engine.
func New(cfg *config.Config) *Engine {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Engine{
		Config:  cfg,
		BaseURL: cfg.BaseURL(),
		Client: &http.Client{
			Transport: transport,
			// Zero means no timeout; model loads can take minutes.
			Timeout: cfg.RequestTimeout,
		},
	}
}

type generateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Raw       bool           `json:"raw"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   generateOption `json:"options"`
}

type generateOption struct {
	Stop   []string `json:"stop,omitempty"`
	NumCtx int      `json:"num_ctx"`
}

type generateResponse struct {
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	TotalDuration      int64  `json:"total_duration"` // ns
	LoadDuration       int64  `json:"load_duration"`  // ns
	PromptEvalCount    int    `json:"prompt_eval_count"`
	PromptEvalDuration int64  `json:"prompt_eval_duration"` // ns
	EvalCount          int    `json:"eval_count"`
	EvalDuration       int64  `json:"eval_duration"` // ns
	Error              string `json:"error"`         // API-side error
}

// Generate sends one rendered prompt to /api/generate.
func (e *Engine) Generate(ctx context.Context, prompt string) (model.Result, error) {
	start := time.Now()
	res := model.Result{
		Model:     e.Config.Model,
		URL:       e.BaseURL,
		Timestamp: start,
		Prompt:    prompt,
	}

	reqBody, err := json.Marshal(generateRequest{
		Model:     e.Config.Model,
		Prompt:    prompt,
		Raw:       e.Config.Raw,
		Stream:    false,
		KeepAlive: e.Config.KeepAlive,
		Options: generateOption{
			Stop:   e.Config.Stop,
			NumCtx: e.Config.NumCtx,
		},
	})
	if err != nil {
		return res, fmt.Errorf("%w: failed to encode request: %w", ErrGenerationService, err)
	}

	trace := &httptrace.ClientTrace{
		GotConn: func(connInfo httptrace.GotConnInfo) {
			output.Logger.Debug().Stringer("remote", connInfo.Conn.RemoteAddr()).Bool("reused", connInfo.Reused).Msg("Network: Connected")
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			output.Logger.Debug().Str("model", e.Config.Model).Msg("Network: Request Sent. Waiting for model...")
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug().Str("model", e.Config.Model).Msg("Network: First Byte Received")
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrGenerationService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return res, fmt.Errorf("%w: network/connection error: %w", ErrGenerationService, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("%w: failed to read response body: %w", ErrGenerationService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("%w: ollama server error (%s): %s", ErrGenerationService, resp.Status, apiError(bodyBytes))
	}

	var data generateResponse
	if err := json.Unmarshal(bodyBytes, &data); err != nil {
		return res, fmt.Errorf("%w: ollama returned invalid JSON: %w (body: %s)", ErrGenerationService, err, string(bodyBytes))
	}
	if data.Error != "" {
		return res, fmt.Errorf("%w: ollama API error: %s", ErrGenerationService, data.Error)
	}

	res.Duration = time.Since(start)
	res.Response = data.Response
	res.TotalDuration = time.Duration(data.TotalDuration)
	res.LoadDuration = time.Duration(data.LoadDuration)
	res.PromptEvalCount = data.PromptEvalCount
	res.PromptEvalDuration = time.Duration(data.PromptEvalDuration)
	res.EvalCount = data.EvalCount
	res.EvalDuration = time.Duration(data.EvalDuration)
	return res, nil
}

// apiError extracts Ollama's {"error": "..."} message, falling back to the raw body.
func apiError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// ModelInfo describes a model known to the server.
type ModelInfo struct {
	Name     string
	Size     int64
	Loaded   bool
	SizeVRAM int64
}

// GetModels returns the models available on the server, marking the ones
// currently loaded in memory.
func (e *Engine) GetModels(ctx context.Context) ([]ModelInfo, error) {
	var tags struct {
		Models []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"models"`
	}
	if err := e.getJSON(ctx, "/api/tags", &tags); err != nil {
		return nil, err
	}

	running, err := e.GetRunningModels(ctx)
	if err != nil {
		// Older servers lack /api/ps; the listing is still useful.
		output.Logger.Warn().Err(err).Msg("Failed to query running models")
	}

	models := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		info := ModelInfo{Name: m.Name, Size: m.Size}
		if vram, ok := running[m.Name]; ok {
			info.Loaded = true
			info.SizeVRAM = vram
		}
		models = append(models, info)
	}
	return models, nil
}

// GetRunningModels returns loaded model names mapped to their VRAM usage, from /api/ps.
func (e *Engine) GetRunningModels(ctx context.Context) (map[string]int64, error) {
	var ps struct {
		Models []struct {
			Name     string `json:"name"`
			SizeVRAM int64  `json:"size_vram"`
		} `json:"models"`
	}
	if err := e.getJSON(ctx, "/api/ps", &ps); err != nil {
		return nil, err
	}

	running := make(map[string]int64, len(ps.Models))
	for _, m := range ps.Models {
		running[m.Name] = m.SizeVRAM
	}
	return running, nil
}

func (e *Engine) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: network/connection error: %w", ErrGenerationService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: bad status from %s: %s", ErrGenerationService, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON from %s: %w", ErrGenerationService, path, err)
	}
	return nil
}
