// Package openai generates text with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	Name           = "openai"
	ConnectionType = "openai"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Extension returns the OpenAI extension.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply(defaultBaseURL, opts)
	return domain.Extension{
		Name:    Name,
		Label:   "OpenAI",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{Type: ConnectionType, Label: "OpenAI API key", Fields: []domain.ConnectionField{
				{Name: "apiKey", Required: true},
				{Name: "organization"},
			}},
		},
		Nodes: []domain.NodeDescriptor{generateCompletion(s)},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage map[string]any `json:"usage"`
}

func generateCompletion(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("OpenAI Connection"),
		{Key: "prompt", Type: domain.FieldTextArea, Label: "Prompt", Description: "Falls back to the user text when empty"},
		{Key: "system", Type: domain.FieldTextArea, Label: "System message"},
		{Key: "model", Type: domain.FieldText, Label: "Model", Default: defaultModel},
		{Key: "maxTokens", Type: domain.FieldNumber, Label: "Maximum tokens", Default: 256},
		{Key: "temperature", Type: domain.FieldNumber, Label: "Temperature", Default: 0.7},
	}
	return domain.NodeDescriptor{
		Type:         "generateCompletion",
		DefaultLabel: "Generate Completion",
		Summary:      "Asks a chat model to complete the prompt",
		Fields:       append(fields, extkit.StorageFields("openai.completion")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Prompt      string  `json:"prompt"`
				System      string  `json:"system"`
				Model       string  `json:"model"`
				MaxTokens   int     `json:"maxTokens"`
				Temperature float64 `json:"temperature"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			prompt := cfg.Prompt
			if strings.TrimSpace(prompt) == "" {
				prompt = inv.Text()
			}
			if prompt == "" {
				err := errors.New("no prompt and no user text")
				inv.Fail(target, err)
				return err
			}

			req := completionRequest{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: &cfg.Temperature}
			if cfg.System != "" {
				req.Messages = append(req.Messages, message{Role: "system", Content: cfg.System})
			}
			req.Messages = append(req.Messages, message{Role: "user", Content: prompt})

			header := http.Header{"Authorization": {"Bearer " + inv.Connection["apiKey"]}}
			if org := inv.Connection["organization"]; org != "" {
				header.Set("OpenAI-Organization", org)
			}

			var res completionResponse
			err := s.Client.JSON(ctx, httpx.Request{
				Method: http.MethodPost,
				URL:    s.BaseURL + "/v1/chat/completions",
				Header: header,
				Body:   req,
			}, &res)
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if len(res.Choices) == 0 {
				err := errors.New("openai returned no choices")
				inv.Fail(target, err)
				return err
			}
			inv.Store(target, strings.TrimSpace(res.Choices[0].Message.Content))
			return nil
		},
	}
}
