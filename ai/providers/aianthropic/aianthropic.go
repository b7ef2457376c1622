// Package aianthropic reads images through the Anthropic Messages API.
package aianthropic

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model option is given
const DefaultModel = "claude-sonnet-4-20250514"

// AnthropicProvider implements ocr.Provider
type AnthropicProvider struct {
	client anthropic.Client
}

var _ ocr.Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a provider. An empty apiKey falls back to
// ANTHROPIC_API_KEY.
func NewAnthropicProvider(apiKey, baseURL string, opts ...option.RequestOption) *AnthropicProvider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		options = append(options, option.WithBaseURL(baseURL))
	}
	options = append(options, opts...)

	return &AnthropicProvider{client: anthropic.NewClient(options...)}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ExtractText(ctx context.Context, imageData []byte, opts ...ocr.Option) (ocr.Result, error) {
	options := ocr.Apply(opts...)
	block := anthropic.NewImageBlockBase64(options.MIMEType, base64.StdEncoding.EncodeToString(imageData))
	return p.complete(ctx, block, options)
}

func (p *AnthropicProvider) ExtractTextFromURL(ctx context.Context, imageURL string, opts ...ocr.Option) (ocr.Result, error) {
	block := anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: imageURL})
	return p.complete(ctx, block, ocr.Apply(opts...))
}

func (p *AnthropicProvider) complete(ctx context.Context, image anthropic.ContentBlockParamUnion, options *ocr.OCROptions) (ocr.Result, error) {
	model := options.Model
	if model == "" {
		model = DefaultModel
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(options.MaxTokens),
		Temperature: anthropic.Float(options.Temperature),
		System:      []anthropic.TextBlockParam{{Text: options.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(image, anthropic.NewTextBlock(options.Instruction)),
		},
	}

	startTime := time.Now()

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ocr.Result{}, ocr.ErrorRegistry.New(ocr.CodeProviderFailed).
			WithCause(err).
			WithDetail("provider", "anthropic").
			WithDetail("model", model)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return ocr.Result{}, ocr.ErrorRegistry.New(ocr.CodeNoContent).
			WithDetail("provider", "anthropic").
			WithDetail("model", model)
	}

	return ocr.Result{
		Text:  text.String(),
		Model: string(msg.Model),
		Usage: ocr.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			ProcessingTime:   int(time.Since(startTime).Milliseconds()),
		},
	}, nil
}
