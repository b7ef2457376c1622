package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/intake"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/persist/memstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type fakeProvider struct {
	text string
	err  error
}

func (p *fakeProvider) ExtractText(_ context.Context, _ []byte, _ ...ocr.Option) (ocr.Result, error) {
	return p.result()
}

func (p *fakeProvider) ExtractTextFromURL(_ context.Context, _ string, _ ...ocr.Option) (ocr.Result, error) {
	return p.result()
}

func (p *fakeProvider) result() (ocr.Result, error) {
	if p.err != nil {
		return ocr.Result{}, p.err
	}
	return ocr.Result{Text: p.text, Model: "fake"}, nil
}

func (p *fakeProvider) Name() string { return "fake" }

type memObjects struct{}

func (memObjects) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return key, nil
}

type testServer struct {
	app    *fiber.App
	store  *memstore.Store
	tokens *auth.TokenService
}

func newTestServer(t *testing.T, provider ocr.Provider) *testServer {
	t.Helper()
	store := memstore.New()
	gateway := persist.NewGateway(store, store, persist.DefaultOptions())
	svc := intake.NewService(
		intake.NewUploader(memObjects{}, "https://cdn.example.com"),
		intake.NewExtractor(provider, intake.ExtractorConfig{Timeout: time.Second}),
		gateway,
		intake.NewSessions(time.Hour),
		nil,
	)
	tokens := auth.NewTokenService(auth.TokenConfig{Secret: []byte("test-secret")})
	return &testServer{
		app:    NewServer(DefaultServerConfig(), NewHandler(svc, gateway), tokens),
		store:  store,
		tokens: tokens,
	}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, req *http.Request, userID string) (*http.Response, map[string]any) {
	t.Helper()
	if userID != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token(t, userID))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, path, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="rx.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func sessionOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	s, ok := body["session"].(map[string]any)
	require.True(t, ok, "response has no session: %v", body)
	return s
}

func TestUploadReviewConfirm(t *testing.T) {
	s := newTestServer(t, &fakeProvider{text: `[{"symptom":"fever, cough","meds":[{"name":"Paracetamol","dosage":"500mg","duration":"5 days"}]}]`})

	resp, body := s.do(t, multipartRequest(t, "/api/v1/prescriptions", "image/jpeg", jpeg), "user-1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	sess := sessionOf(t, body)
	id := sess["id"].(string)
	assert.Equal(t, "editing", sess["state"])
	assert.Len(t, sess["symptoms"], 2)
	assert.Len(t, sess["medicines"], 1)

	resp, body = s.do(t, jsonRequest(http.MethodPatch, "/api/v1/sessions/"+id+"/medicines/0",
		MedicineEditRequest{Field: "duration", Value: "7 days"}), "user-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/review", nil), "user-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	sess = sessionOf(t, body)
	assert.Equal(t, "warning", sess["state"])
	assert.Equal(t, intake.WarningMessage, sess["warning"].(map[string]any)["message"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/confirm", nil), "user-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "done", sessionOf(t, body)["state"])

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), "user-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, []any{"fever", "cough"}, profile["symptoms"])
	meds := profile["medicines"].(map[string]any)["data"].([]any)
	require.Len(t, meds, 1)
	assert.Equal(t, "7 days", meds[0].(map[string]any)["duration"])
}

func TestCameraCapture(t *testing.T) {
	s := newTestServer(t, &fakeProvider{text: `[]`})

	capture := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/prescriptions", ImageRequest{Image: capture}), "user-1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	sess := sessionOf(t, body)
	assert.Equal(t, "nothing_found", sess["outcome"])
	assert.True(t, strings.HasPrefix(sess["image"].(map[string]any)["filename"].(string), "capture-"))
}

func TestUploadRequiresToken(t *testing.T) {
	s := newTestServer(t, &fakeProvider{text: `[]`})

	resp, body := s.do(t, multipartRequest(t, "/api/v1/prescriptions", "image/jpeg", jpeg), "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(auth.CodeUnauthenticated), body["code"])
}

func TestUploadRejectsNonImage(t *testing.T) {
	s := newTestServer(t, &fakeProvider{text: `[]`})

	resp, body := s.do(t, multipartRequest(t, "/api/v1/prescriptions", "application/pdf", []byte("%PDF-1.4")), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RX_INVALID_IMAGE", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/v1/prescriptions", ImageRequest{Image: "hello"}), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
}

func TestMalformedExtractionOffersManualEntry(t *testing.T) {
	s := newTestServer(t, &fakeProvider{text: `Sorry, I cannot read this.`})

	resp, body := s.do(t, multipartRequest(t, "/api/v1/prescriptions", "image/jpeg", jpeg), "user-1")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode, body)
	assert.Equal(t, "RX_MALFORMED_EXTRACTION", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "manual", details["fallback"])
	id := details["session_id"].(string)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/"+id+"/manual", nil), "user-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "editing", sessionOf(t, body)["state"])
}

func TestManualSessionFlow(t *testing.T) {
	s := newTestServer(t, &fakeProvider{})

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil), "user-1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	id := sessionOf(t, body)["id"].(string)
	base := "/api/v1/sessions/" + id

	resp, body = s.do(t, jsonRequest(http.MethodPost, base+"/symptoms", SymptomRequest{Text: "rash"}), "user-1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	resp, body = s.do(t, jsonRequest(http.MethodPost, base+"/symptoms", SymptomRequest{Text: "a*b"}), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodPatch, base+"/medicines/0",
		MedicineEditRequest{Field: "colour", Value: "red"}), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodDelete, base+"/medicines/7", nil), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RX_INDEX_OUT_OF_RANGE", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodDelete, base+"/medicines/x", nil), "user-1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RX_INDEX_OUT_OF_RANGE", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, base+"/confirm", nil), "user-1")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "RX_INVALID_TRANSITION", body["code"])

	resp, _ = s.do(t, jsonRequest(http.MethodDelete, base, nil), "user-1")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, base, nil), "user-1")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RX_SESSION_NOT_FOUND", body["code"])
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t, &fakeProvider{})

	_, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil), "user-1")
	id := sessionOf(t, body)["id"].(string)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil), "user-2")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RX_SESSION_NOT_FOUND", body["code"])
}

func TestDocsArePublic(t *testing.T) {
	s := newTestServer(t, &fakeProvider{})

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/docs", nil), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, BasePath, body["basePath"])
	assert.NotEmpty(t, body["endpoints"])

	req := httptest.NewRequest(http.MethodGet, "/docs?format=markdown", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "curl -X POST")
}
