package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// Ollama is an LLM client backed by a local Ollama server.
type Ollama struct {
	client      *ollama.Client
	model       string
	temperature float32
}

// NewOllama creates a new Ollama client. baseURL defaults to the local Ollama
// address when empty.
func NewOllama(model, baseURL string, temperature float32) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 300 * time.Second,
	}

	return &Ollama{
		client:      ollama.NewClient(parsedURL, hc),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate sends one system-prompted exchange to the Ollama chat API.
func (o *Ollama) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:  o.model,
		Stream: &stream,
		Messages: []ollama.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Options: map[string]interface{}{
			"temperature": o.temperature,
		},
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	return sb.String(), nil
}

var _ LLM = (*Ollama)(nil)
