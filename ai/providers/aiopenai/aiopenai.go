// Package aiopenai reads images through an OpenAI compatible chat completion
// endpoint. Groq and other compatible hosts work by overriding the base URL.
package aiopenai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared/constant"
)

// DefaultModel is used when no model option is given
const DefaultModel = "gpt-4o"

// OpenAIProvider implements ocr.Provider
type OpenAIProvider struct {
	client openai.Client
	name   string
}

var _ ocr.Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider. An empty apiKey falls back
// to OPENAI_API_KEY; an empty baseURL keeps the SDK default.
func NewOpenAIProvider(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	name := "openai"
	if baseURL != "" {
		options = append(options, option.WithBaseURL(ensureSlash(baseURL)))
		name = "openai-compatible(" + baseURL + ")"
	}
	options = append(options, opts...)

	return &OpenAIProvider{
		client: openai.NewClient(options...),
		name:   name,
	}
}

func ensureSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) ExtractText(ctx context.Context, imageData []byte, opts ...ocr.Option) (ocr.Result, error) {
	options := ocr.Apply(opts...)
	dataURL := fmt.Sprintf("data:%s;base64,%s", options.MIMEType, base64.StdEncoding.EncodeToString(imageData))
	return p.complete(ctx, dataURL, options)
}

func (p *OpenAIProvider) ExtractTextFromURL(ctx context.Context, imageURL string, opts ...ocr.Option) (ocr.Result, error) {
	return p.complete(ctx, imageURL, ocr.Apply(opts...))
}

func (p *OpenAIProvider) complete(ctx context.Context, imageURL string, options *ocr.OCROptions) (ocr.Result, error) {
	contentParts := []openai.ChatCompletionContentPartUnionParam{
		{
			OfText: &openai.ChatCompletionContentPartTextParam{
				Type: constant.Text("text"),
				Text: options.Instruction,
			},
		},
		{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				Type: constant.ImageURL("image_url"),
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: options.DetailsLevel,
				},
			},
		},
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(options.SystemPrompt),
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: contentParts,
					},
				},
			},
		},
	}

	modelToUse := options.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}
	params.Model = modelToUse
	params.Temperature = openai.Float(options.Temperature)
	params.MaxTokens = openai.Int(int64(options.MaxTokens))
	if options.User != "" {
		params.User = openai.String(options.User)
	}

	startTime := time.Now()

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ocr.Result{}, ocr.ErrorRegistry.New(ocr.CodeProviderFailed).
			WithCause(err).
			WithDetail("provider", p.name).
			WithDetail("model", modelToUse)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return ocr.Result{}, ocr.ErrorRegistry.New(ocr.CodeNoContent).
			WithDetail("provider", p.name).
			WithDetail("model", modelToUse)
	}

	return ocr.Result{
		Text:  completion.Choices[0].Message.Content,
		Model: completion.Model,
		Usage: ocr.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
			ProcessingTime:   int(time.Since(startTime).Milliseconds()),
		},
	}, nil
}
