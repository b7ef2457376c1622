package aianthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromURL(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &req))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "[{\"symptom\":\"cough\",\"meds\":[]}]"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 9}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL, option.WithMaxRetries(0))
	res, err := p.ExtractTextFromURL(context.Background(), "https://cdn.example.com/u1/rx.jpg",
		ocr.WithModel("claude-test"), ocr.WithSystemPrompt("extract"))
	require.NoError(t, err)

	assert.Equal(t, `[{"symptom":"cough","meds":[]}]`, res.Text)
	assert.Equal(t, 29, res.Usage.TotalTokens)
	assert.Equal(t, float64(0), req["temperature"])
	assert.Equal(t, "claude-test", req["model"])

	content := req["messages"].([]any)[0].(map[string]any)["content"].([]any)
	source := content[0].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "url", source["type"])
	assert.Equal(t, "https://cdn.example.com/u1/rx.jpg", source["url"])
}

func TestEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL, option.WithMaxRetries(0))
	_, err := p.ExtractText(context.Background(), []byte{1}, ocr.WithMIMEType("image/png"))
	assert.True(t, errx.IsCode(err, ocr.CodeNoContent))
}
