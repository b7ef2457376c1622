package aiopenai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1710000000,
	"model": "llama-3.2-11b-vision-preview",
	"choices": [{"index": 0, "finish_reason": "stop",
		"message": {"role": "assistant", "content": "[{\"symptom\":\"fever\",\"meds\":[]}]"}}],
	"usage": {"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18}
}`

func fakeServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			require.NoError(t, json.Unmarshal(raw, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractTextFromURL(t *testing.T) {
	var req map[string]any
	srv := fakeServer(t, http.StatusOK, completionBody, &req)
	p := NewOpenAIProvider("test-key", srv.URL, option.WithMaxRetries(0))

	res, err := p.ExtractTextFromURL(context.Background(), "https://cdn.example.com/u1/rx.jpg",
		ocr.WithModel("llama-3.2-11b-vision-preview"),
		ocr.WithSystemPrompt("extract"),
		ocr.WithMaxTokens(8192),
	)
	require.NoError(t, err)

	assert.Equal(t, `[{"symptom":"fever","meds":[]}]`, res.Text)
	assert.Equal(t, 18, res.Usage.TotalTokens)

	assert.Equal(t, "llama-3.2-11b-vision-preview", req["model"])
	assert.Equal(t, float64(0), req["temperature"])
	assert.Equal(t, float64(8192), req["max_tokens"])
	assert.Nil(t, req["stream"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	parts := messages[1].(map[string]any)["content"].([]any)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/u1/rx.jpg", image["url"])
}

func TestExtractTextSendsDataURL(t *testing.T) {
	var req map[string]any
	srv := fakeServer(t, http.StatusOK, completionBody, &req)
	p := NewOpenAIProvider("test-key", srv.URL, option.WithMaxRetries(0))

	_, err := p.ExtractText(context.Background(), []byte{1, 2, 3}, ocr.WithMIMEType("image/png"))
	require.NoError(t, err)

	messages := req["messages"].([]any)
	parts := messages[1].(map[string]any)["content"].([]any)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AQID", image["url"])
}

func TestUpstreamFailure(t *testing.T) {
	srv := fakeServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`, nil)
	p := NewOpenAIProvider("test-key", srv.URL, option.WithMaxRetries(0))

	_, err := p.ExtractTextFromURL(context.Background(), "https://cdn.example.com/u1/rx.jpg")
	assert.True(t, errx.IsCode(err, ocr.CodeProviderFailed))
}

func TestNoChoices(t *testing.T) {
	srv := fakeServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	p := NewOpenAIProvider("test-key", srv.URL, option.WithMaxRetries(0))

	_, err := p.ExtractTextFromURL(context.Background(), "https://cdn.example.com/u1/rx.jpg")
	assert.True(t, errx.IsCode(err, ocr.CodeNoContent))
}
