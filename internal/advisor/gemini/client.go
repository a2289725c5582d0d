// Package gemini provides the Google Gemini implementation of the advisor's
// Collaborator contract.
package gemini

import (
	"context"
	"fmt"

	"backoffice-reconciliation/pkg/errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gemini-1.5-flash"

// Client talks to the Gemini API and satisfies advisor.Collaborator.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a Gemini-backed collaborator. The model name falls back
// to DefaultModel when empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "advisor.api_key", nil).
			WithSuggestion("set advisor.api_key in the config file or the BANKREC_ADVISOR_API_KEY environment variable")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.AdvisorError(errors.CodeAdvisorTransport, "creating Gemini client", err)
	}

	return &Client{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

// Complete sends one prompt and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.AdvisorError(errors.CodeAdvisorTransport, "generating content", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.AdvisorError(errors.CodeAdvisorResponse, "empty completion", nil)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.AdvisorError(errors.CodeAdvisorResponse,
			fmt.Sprintf("unexpected part type %T", resp.Candidates[0].Content.Parts[0]), nil)
	}

	return string(text), nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}
