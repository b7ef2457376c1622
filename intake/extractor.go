package intake

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/prescription"
)

const systemPrompt = "You are a medical assistant that turns prescription images into structured JSON."

// Instruction is sent with every prescription image.
const Instruction = "The image is a handwritten or printed prescription. Read its text, then identify every medicine on it. " +
	"Answer with a JSON array of objects with exactly two keys: 'symptom', a string of all symptoms separated by commas, " +
	"and 'meds', a list of {'name', 'dosage', 'duration'} objects giving the medicine name, the prescribed dosage and how long to take it. " +
	"Use your medical knowledge to infer missing details; when a value cannot be determined use 'null'. " +
	"Output only the JSON array on a single line, with no formatting, line breaks or commentary."

// ImageMode selects how the image reaches the model
type ImageMode string

const (
	// ImageModeURL lets the provider fetch the public URL
	ImageModeURL ImageMode = "url"
	// ImageModeInline sends the uploaded bytes as a data URL
	ImageModeInline ImageMode = "inline"
)

// ExtractorConfig tunes the extraction request
type ExtractorConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
	ImageMode ImageMode
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{MaxTokens: 8192, Timeout: 60 * time.Second, ImageMode: ImageModeURL}
}

// Extractor asks a vision model to transcribe a stored prescription image
type Extractor struct {
	provider ocr.Provider
	cfg      ExtractorConfig
}

func NewExtractor(provider ocr.Provider, cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.ImageMode == "" {
		cfg.ImageMode = def.ImageMode
	}
	return &Extractor{provider: provider, cfg: cfg}
}

// Extract makes one non-streaming, temperature 0 request. img carries the
// uploaded bytes for inline mode.
func (e *Extractor) Extract(ctx context.Context, stored prescription.StoredImage, img prescription.Image) (prescription.ExtractionRecord, error) {
	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	opts := []ocr.Option{
		ocr.WithSystemPrompt(systemPrompt),
		ocr.WithInstruction(Instruction),
		ocr.WithTemperature(0),
		ocr.WithMaxTokens(e.cfg.MaxTokens),
		ocr.WithUser(stored.OwnerID),
	}
	if e.cfg.Model != "" {
		opts = append(opts, ocr.WithModel(e.cfg.Model))
	}

	var (
		res ocr.Result
		err error
	)
	switch e.cfg.ImageMode {
	case ImageModeInline:
		res, err = e.provider.ExtractText(callCtx, img.Data, append(opts, ocr.WithMIMEType(img.MIMEType))...)
	default:
		res, err = e.provider.ExtractTextFromURL(callCtx, stored.URL, opts...)
	}
	if err != nil {
		return prescription.ExtractionRecord{}, e.classify(ctx, callCtx, err, stored)
	}

	logx.Info("extraction of %s via %s: %d prompt / %d completion tokens in %dms",
		stored.Path, e.provider.Name(), res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.ProcessingTime)
	logx.Debug("raw extraction for %s: %s", stored.Path, res.Text)

	return prescription.ExtractionRecord{
		Raw:              res.Text,
		Model:            res.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
	}, nil
}

func (e *Extractor) classify(parent, call context.Context, err error, stored prescription.StoredImage) error {
	switch {
	case parent.Err() != nil:
		return prescription.ErrorRegistry.New(prescription.CodeCancelled).WithCause(err)
	case errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		logx.Warn("extraction of %s timed out after %s", stored.Path, e.cfg.Timeout)
		return prescription.ErrorRegistry.New(prescription.CodeExtractionTimeout).
			WithCause(err).
			WithDetail("timeout", e.cfg.Timeout.String())
	case errx.IsCode(err, ocr.CodeNoContent):
		logx.Warn("extraction of %s returned no content", stored.Path)
		return prescription.ErrorRegistry.New(prescription.CodeExtractionEmpty).
			WithCause(err).
			WithDetail("provider", e.provider.Name())
	default:
		logx.Error("extraction of %s via %s failed: %v", stored.Path, e.provider.Name(), err)
		return prescription.ErrorRegistry.New(prescription.CodeExtractionFailed).
			WithCause(err).
			WithDetail("provider", e.provider.Name())
	}
}
