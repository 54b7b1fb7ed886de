package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider extracts invoice data through the Google Gemini API.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

// ExtractData sends the prompt and page images in one generation request. The
// client is created per call; genai clients are cheap and this keeps the
// provider stateless.
func (p *GeminiProvider) ExtractData(ctx context.Context, prompt string, images []string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	parts := []genai.Part{genai.Text(prompt)}
	for _, image := range images {
		data, err := base64.StdEncoding.DecodeString(image)
		if err != nil {
			return "", fmt.Errorf("decoding page image: %w", err)
		}
		parts = append(parts, genai.ImageData("jpeg", data))
	}

	model := client.GenerativeModel(p.model)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Name identifies the provider.
func (p *GeminiProvider) Name() string {
	return "gemini"
}
