package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens() *TokenService {
	return NewTokenService(TokenConfig{Secret: []byte("test-secret"), Audience: "authenticated", Issuer: "https://auth.example.com"})
}

func TestRoundTrip(t *testing.T) {
	tokens := newTokens()
	signed, err := tokens.GenerateToken("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestRejectsExpiredAndForeignTokens(t *testing.T) {
	tokens := newTokens()
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tokens.GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)

	other := NewTokenService(TokenConfig{Secret: []byte("other-secret"), Audience: "authenticated", Issuer: "https://auth.example.com"})
	foreign, err := other.GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "iss": "https://auth.example.com"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{"expired": expired, "foreign": foreign, "no-exp": noExp, "garbage": "abc.def.ghi"} {
		_, err := newTokens().ValidateToken(tok)
		assert.True(t, errx.IsCode(err, CodeInvalidToken), name)
	}
}

func TestGenerateRequiresUser(t *testing.T) {
	_, err := newTokens().GenerateToken(" ", "", time.Hour)
	assert.True(t, errx.IsCode(err, CodeUnauthenticated))
}

func TestMiddleware(t *testing.T) {
	tokens := newTokens()
	app := fiber.New(fiber.Config{ErrorHandler: errx.FiberErrorHandler(nil)})
	app.Get("/me", Middleware(tokens), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	signed, err := tokens.GenerateToken("user-42", "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic "+signed)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
