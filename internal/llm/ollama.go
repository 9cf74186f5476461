package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds the Ollama-backed client configuration, following the
// teacher's DefaultConfig()-factory idiom (internal/inference.Config).
type Config struct {
	OllamaURL   string
	Model       string
	ContextSize int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns the default Ollama client configuration.
func DefaultConfig() *Config {
	return &Config{
		OllamaURL:   "http://localhost:11434",
		Model:       "qwen2.5-coder:7b",
		ContextSize: 32768,
		Temperature: 0.3,
		Timeout:     2 * time.Minute,
	}
}

// OllamaClient implements both Summarizer and Extractor against a local
// Ollama server, adapted from the teacher's internal/inference.Client: same
// non-streaming /api/generate request shape, same http.Client-with-timeout
// construction, but collapsed to the synchronous call DSA and the
// extraction adapter actually need (no streaming channel, since neither
// collaborator interface here is streaming).
type OllamaClient struct {
	config     *Config
	httpClient *http.Client
}

// NewOllamaClient builds a client; a nil config falls back to DefaultConfig.
func NewOllamaClient(config *Config) *OllamaClient {
	if config == nil {
		config = DefaultConfig()
	}
	return &OllamaClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type generateRequest struct {
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt"`
	Stream      bool           `json:"stream"`
	Temperature float64        `json:"temperature,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:       c.config.Model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: c.config.Temperature,
		Options:     map[string]any{"num_ctx": c.config.ContextSize},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.OllamaURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: unexpected status %d from ollama", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("llm: decode ollama response: %w", err)
	}
	return genResp.Response, nil
}

// Summarize implements Summarizer by prompting the model to fold newFacts
// into existingSummary.
func (c *OllamaClient) Summarize(ctx context.Context, existingSummary string, newFacts []string) (string, error) {
	if len(newFacts) == 0 {
		return existingSummary, nil
	}
	var b strings.Builder
	b.WriteString("Update the following community summary with the new facts below. ")
	b.WriteString("Keep it concise and preserve prior information.\n\n")
	b.WriteString("Existing summary:\n")
	b.WriteString(existingSummary)
	b.WriteString("\n\nNew facts:\n")
	for _, f := range newFacts {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	return c.generate(ctx, b.String())
}

// ExtractFacts implements Extractor by prompting the model to emit
// newline-separated atomic facts, which are returned as a single
// undifferentiated Fact batch (subject/object resolution is left to the
// caller, matching the adapter's own entity-merge pass in spec §4.1).
func (c *OllamaClient) ExtractFacts(ctx context.Context, text string) ([]Fact, error) {
	prompt := "Extract atomic, standalone facts from this text, one per line:\n\n" + text
	out, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var facts []Fact
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		facts = append(facts, Fact{
			Source:     "doc",
			Target:     "fact",
			Predicate:  "RELATED",
			Text:       line,
			Confidence: 1.0,
		})
	}
	return facts, nil
}
