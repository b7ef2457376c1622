package intake

import (
	"context"
	"sync"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/fsx"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
)

type MockProvider struct {
	ExtractTextFunc        func(ctx context.Context, data []byte, o *ocr.OCROptions) (ocr.Result, error)
	ExtractTextFromURLFunc func(ctx context.Context, url string, o *ocr.OCROptions) (ocr.Result, error)

	mu       sync.Mutex
	urlCalls int
	rawCalls int
}

func (m *MockProvider) ExtractText(ctx context.Context, data []byte, opts ...ocr.Option) (ocr.Result, error) {
	m.mu.Lock()
	m.rawCalls++
	m.mu.Unlock()
	return m.ExtractTextFunc(ctx, data, ocr.Apply(opts...))
}

func (m *MockProvider) ExtractTextFromURL(ctx context.Context, url string, opts ...ocr.Option) (ocr.Result, error) {
	m.mu.Lock()
	m.urlCalls++
	m.mu.Unlock()
	return m.ExtractTextFromURLFunc(ctx, url, ocr.Apply(opts...))
}

func (m *MockProvider) Name() string { return "mock" }

// answering returns a provider whose URL reads always produce text
func answering(text string) *MockProvider {
	return &MockProvider{
		ExtractTextFromURLFunc: func(context.Context, string, *ocr.OCROptions) (ocr.Result, error) {
			return ocr.Result{Text: text, Model: "mock-vision"}, nil
		},
	}
}

type MockStore struct {
	PutFunc func(ctx context.Context, key string, data []byte, contentType string) (string, error)
	keys    []string
}

func (m *MockStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.keys = append(m.keys, key)
	if m.PutFunc == nil {
		return key, nil
	}
	return m.PutFunc(ctx, key, data, contentType)
}

type MockCommitter struct {
	CommitFunc func(ctx context.Context, userID string, symptoms []string, medicines []prescription.Medicine) (persist.Report, error)

	mu    sync.Mutex
	calls int
}

func (m *MockCommitter) Commit(ctx context.Context, userID string, symptoms []string, medicines []prescription.Medicine) (persist.Report, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.CommitFunc(ctx, userID, symptoms, medicines)
}

func (m *MockCommitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var (
	_ ocr.Provider     = (*MockProvider)(nil)
	_ fsx.ObjectStore  = (*MockStore)(nil)
	_ Committer        = (*MockCommitter)(nil)
	_ Committer        = (*persist.Gateway)(nil)
)

func testImage() prescription.Image {
	return prescription.Image{
		Data:     []byte{0xff, 0xd8, 0xff, 0xe0},
		MIMEType: "image/jpeg",
		Source:   prescription.SourceFile,
		Filename: "rx.jpg",
	}
}
