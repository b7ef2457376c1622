package ocr

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/rxintake/errx"
)

var (
	ErrorRegistry = errx.NewRegistry("OCR")

	CodeProviderFailed = ErrorRegistry.Register("PROVIDER_FAILED", errx.TypeExternal,
		http.StatusBadGateway, "Vision provider request failed")
	CodeNoContent = ErrorRegistry.Register("NO_CONTENT", errx.TypeExternal,
		http.StatusBadGateway, "Vision provider returned no content")
)

// Provider reads text out of an image with a vision model
type Provider interface {
	// ExtractText sends the image bytes inline
	ExtractText(ctx context.Context, imageData []byte, opts ...Option) (Result, error)

	// ExtractTextFromURL lets the provider fetch the image itself
	ExtractTextFromURL(ctx context.Context, imageURL string, opts ...Option) (Result, error)

	// Name identifies the provider in logs
	Name() string
}

// Result represents the output of an OCR operation
type Result struct {
	// Text is the model's answer, verbatim
	Text  string
	Model string
	Usage Usage
}

// Usage represents resource usage statistics for OCR operations
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ProcessingTime   int // in milliseconds
}
