package ai

import "context"

// Provider is an AI backend capable of reading invoice page images and
// returning the raw model response text for the extraction prompt.
type Provider interface {
	// ExtractData sends the prompt plus base64-encoded JPEG/PNG page images
	// and returns the raw response text.
	ExtractData(ctx context.Context, prompt string, images []string) (string, error)

	// Name identifies the provider in job records and logs.
	Name() string
}
