// Package gemini generates text with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"google.golang.org/genai"
)

const (
	Name           = "gemini"
	ConnectionType = "gemini"

	defaultModel = "gemini-2.0-flash"
)

// Extension returns the Gemini extension. WithBaseURL overrides the API endpoint;
// the HTTP client option is ignored since the SDK manages its own transport.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply("", opts)
	return domain.Extension{
		Name:    Name,
		Label:   "Google Gemini",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{Type: ConnectionType, Label: "Gemini API key", Fields: []domain.ConnectionField{{Name: "apiKey", Required: true}}},
		},
		Nodes: []domain.NodeDescriptor{generateText(s.BaseURL)},
	}
}

func newClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func generateText(baseURL string) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Gemini Connection"),
		{Key: "prompt", Type: domain.FieldTextArea, Label: "Prompt", Description: "Falls back to the user text when empty"},
		{Key: "system", Type: domain.FieldTextArea, Label: "System instruction"},
		{Key: "model", Type: domain.FieldText, Label: "Model", Default: defaultModel},
		{Key: "maxTokens", Type: domain.FieldNumber, Label: "Maximum output tokens", Default: 256},
		{Key: "temperature", Type: domain.FieldNumber, Label: "Temperature", Default: 0.7},
	}
	return domain.NodeDescriptor{
		Type:         "generateText",
		DefaultLabel: "Generate Text",
		Fields:       append(fields, extkit.StorageFields("gemini.text")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Prompt      string  `json:"prompt"`
				System      string  `json:"system"`
				Model       string  `json:"model"`
				MaxTokens   int32   `json:"maxTokens"`
				Temperature float32 `json:"temperature"`
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

			client, err := newClient(ctx, inv.Connection["apiKey"], baseURL)
			if err != nil {
				inv.Fail(target, err)
				return err
			}

			gen := &genai.GenerateContentConfig{
				Temperature:     genai.Ptr(cfg.Temperature),
				MaxOutputTokens: cfg.MaxTokens,
			}
			if cfg.System != "" {
				gen.SystemInstruction = genai.NewContentFromText(cfg.System, genai.RoleUser)
			}

			resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), gen)
			if err != nil {
				err = fmt.Errorf("gemini generate failed: %w", err)
				inv.Fail(target, err)
				return err
			}
			inv.Store(target, strings.TrimSpace(resp.Text()))
			return nil
		},
	}
}
