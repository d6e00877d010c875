// Package provider talks to the local Ollama daemon over its
// OpenAI-compatible API. Remote providers are deliberately out of
// scope; the assistant assumes inference stays on this machine.
package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const (
	// DefaultHost matches Ollama's default listen address.
	DefaultHost = "http://localhost:11434"

	DefaultModel       = "qwen2.5-coder:7b"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Options configures an Ollama client.
type Options struct {
	Host        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Ollama is a chat-completion client bound to one model. It implements
// the agent's Completer contract.
type Ollama struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// New creates an Ollama client. Empty fields fall back to defaults, the
// host additionally to the OLLAMA_HOST environment variable.
func New(opts Options) *Ollama {
	host := opts.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = DefaultHost
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	temp := opts.Temperature
	if temp <= 0 {
		temp = DefaultTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// Ollama ignores the API key but the SDK requires one.
	config := openai.DefaultConfig("ollama")
	config.BaseURL = strings.TrimRight(host, "/") + "/v1"

	return &Ollama{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temp,
		maxTokens:   maxTokens,
	}
}

// Model returns the model name the client is bound to.
func (o *Ollama) Model() string { return o.model }

// Complete performs one chat completion. taskContext, when present, is
// supplied as a separate system message ahead of the prompt.
func (o *Ollama) Complete(ctx context.Context, prompt, taskContext string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(taskContext) != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Context for the current task:\n\n" + taskContext,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   o.maxTokens,
		Temperature: &o.temperature,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ollama completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
