package ocr

// OCROptions contains options for OCR operations
type OCROptions struct {
	Model string

	// SystemPrompt is the fixed instruction sent ahead of the image
	SystemPrompt string

	// Instruction accompanies the image in the user turn
	Instruction string

	// Temperature defaults to 0 so repeated reads of one image agree
	Temperature float64

	MaxTokens int

	// MIMEType describes inline image bytes
	MIMEType string

	// DetailsLevel is passed to providers that support it ("low" | "high" | "auto")
	DetailsLevel string

	// User is an optional end-user identifier for provider-side abuse tracking
	User string
}

// Option is a function type to modify OCROptions
type Option func(*OCROptions)

func WithModel(model string) Option {
	return func(o *OCROptions) { o.Model = model }
}

func WithSystemPrompt(prompt string) Option {
	return func(o *OCROptions) { o.SystemPrompt = prompt }
}

func WithInstruction(text string) Option {
	return func(o *OCROptions) { o.Instruction = text }
}

func WithTemperature(t float64) Option {
	return func(o *OCROptions) { o.Temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(o *OCROptions) { o.MaxTokens = n }
}

func WithMIMEType(mimeType string) Option {
	return func(o *OCROptions) { o.MIMEType = mimeType }
}

func WithDetailsLevel(level string) Option {
	return func(o *OCROptions) { o.DetailsLevel = level }
}

func WithUser(user string) Option {
	return func(o *OCROptions) { o.User = user }
}

// DefaultOptions returns the default OCR options
func DefaultOptions() *OCROptions {
	return &OCROptions{
		SystemPrompt: "You are an OCR system that extracts text from images.",
		Instruction:  "Extract the text from this image.",
		Temperature:  0,
		MaxTokens:    1024,
		MIMEType:     "image/jpeg",
		DetailsLevel: "high",
	}
}

// Apply builds options from defaults
func Apply(opts ...Option) *OCROptions {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
