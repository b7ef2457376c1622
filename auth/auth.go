package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrorRegistry = errx.NewRegistry("AUTH")

	CodeUnauthenticated = ErrorRegistry.Register("UNAUTHENTICATED", errx.TypeAuthorization,
		http.StatusUnauthorized, "Sign in to continue")
	CodeInvalidToken = ErrorRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization,
		http.StatusUnauthorized, "Access token is invalid or expired")
	CodeSigningFailed = ErrorRegistry.Register("SIGNING_FAILED", errx.TypeInternal,
		http.StatusInternalServerError, "Access token could not be issued")
)

// Unauthenticated is returned by every component that is handed an empty user id
func Unauthenticated() *errx.Error {
	return ErrorRegistry.New(CodeUnauthenticated)
}

// RequireUser fails with Unauthenticated when userID is blank
func RequireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return Unauthenticated()
	}
	return nil
}

// JWTClaims matches the access tokens of the hosted identity provider: the
// subject is the user id.
type JWTClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject
func (c *JWTClaims) UserID() string {
	return c.Subject
}

// TokenConfig configures signing and verification
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	// Leeway tolerates clock skew between the identity provider and this service
	Leeway time.Duration
}

// TokenService validates bearer tokens and mints development tokens
type TokenService struct {
	cfg    TokenConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenService builds a verifier for HMAC signed tokens
func NewTokenService(cfg TokenConfig) *TokenService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &TokenService{cfg: cfg, parser: jwt.NewParser(opts...), now: time.Now}
}

// ValidateToken parses and verifies a token string
func (s *TokenService) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, ErrorRegistry.New(CodeInvalidToken).WithCause(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrorRegistry.NewWithMessage(CodeInvalidToken, "Access token has no subject")
	}
	return claims, nil
}

// GenerateToken signs an HS256 token for userID
func (s *TokenService) GenerateToken(userID, email string, ttl time.Duration) (string, error) {
	if err := RequireUser(userID); err != nil {
		return "", err
	}

	now := s.now()
	claims := JWTClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", ErrorRegistry.New(CodeSigningFailed).WithCause(err)
	}
	return signed, nil
}
