// Package gemini implements the suggestion provider on Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

const defaultModel = "gemini-1.5-flash"

// Provider generates outline suggestions and source categorization with
// Gemini's JSON output mode.
type Provider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewProvider creates a Gemini-backed suggestion provider.
func NewProvider(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// SuggestOutline proposes report section titles for the project's sources.
func (p *Provider) SuggestOutline(ctx context.Context, projectTitle string, sources []research.SourceRecord) ([]research.OutlineSuggestion, error) {
	var listing strings.Builder
	for _, source := range sources {
		fmt.Fprintf(&listing, "- %s (%s)\n", source.Title, source.Domain)
	}

	prompt := fmt.Sprintf(`You are organizing a research report titled %q.
Given the sources below, suggest 3-6 report sections.
Respond with a JSON array of objects with "title" and "rationale" fields.

Sources:
%s`, projectTitle, listing.String())

	text, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var suggestions []research.OutlineSuggestion
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse outline suggestions: %w", err)
	}
	return suggestions, nil
}

// CategorizeSource picks which sections a source belongs under. An empty
// result means no confident placement.
func (p *Provider) CategorizeSource(ctx context.Context, title, excerpt string, sectionTitles []string) ([]int, error) {
	if len(sectionTitles) == 0 {
		return nil, nil
	}

	var listing strings.Builder
	for i, sectionTitle := range sectionTitles {
		fmt.Fprintf(&listing, "%d. %s\n", i, sectionTitle)
	}

	prompt := fmt.Sprintf(`A research source needs to be filed under report sections.

Source title: %s
Source excerpt: %s

Sections (zero-indexed):
%s
Respond with a JSON array of the matching section indices, or [] if none fit.`, title, excerpt, listing.String())

	text, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var indices []int
	if err := json.Unmarshal([]byte(text), &indices); err != nil {
		return nil, fmt.Errorf("failed to parse categorization: %w", err)
	}

	valid := indices[:0]
	for _, index := range indices {
		if index >= 0 && index < len(sectionTitles) {
			valid = append(valid, index)
		}
	}
	return valid, nil
}

// generateJSON runs one JSON-mode completion.
func (p *Provider) generateJSON(ctx context.Context, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

// extractTextFromResponse concatenates the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	if builder.Len() == 0 {
		return "", fmt.Errorf("no text parts in model response")
	}
	return builder.String(), nil
}

// cleanJSONBlock strips markdown code fences the model sometimes adds.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
