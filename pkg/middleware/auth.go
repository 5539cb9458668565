package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"devlog-shortener/pkg/logging"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	// TokenHash is a bcrypt hash of the shared bearer token.
	TokenHash string
	IssuerURL string
	Audience  string
}

// Configured reports whether any credential source is set.
func (c AuthConfig) Configured() bool {
	return c.TokenHash != "" || c.IssuerURL != ""
}

// AuthMiddleware guards write endpoints with a bearer token. A request passes
// when the token matches the configured hash or verifies against the OIDC
// issuer.
type AuthMiddleware struct {
	tokenHash []byte
	verifier  TokenVerifier
	logger    *logging.Logger
}

// TokenVerifier checks an ID token and returns its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v oidcVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return token.Subject, nil
}

func NewAuthMiddleware(ctx context.Context, config AuthConfig, logger *logging.Logger) (*AuthMiddleware, error) {
	m := &AuthMiddleware{logger: logger}
	if config.TokenHash != "" {
		if _, err := bcrypt.Cost([]byte(config.TokenHash)); err != nil {
			return nil, fmt.Errorf("invalid token hash: %w", err)
		}
		m.tokenHash = []byte(config.TokenHash)
	}

	if config.IssuerURL != "" {
		provider, err := oidc.NewProvider(ctx, config.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		m.verifier = oidcVerifier{verifier: provider.Verifier(&oidc.Config{
			ClientID: config.Audience,
		})}
	}

	return m, nil
}

// NewAuthMiddlewareWithVerifier is used when tokens are checked by something
// other than an OIDC provider.
func NewAuthMiddlewareWithVerifier(tokenHash string, verifier TokenVerifier, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokenHash: []byte(tokenHash), verifier: verifier, logger: logger}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		if len(m.tokenHash) > 0 && bcrypt.CompareHashAndPassword(m.tokenHash, []byte(token)) == nil {
			m.logger.LogAuthEvent(ctx, "static_token", "static", true)
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, subKey, "static")))
			return
		}

		if m.verifier != nil {
			sub, err := m.verifier.Verify(ctx, token)
			if err == nil {
				m.logger.LogAuthEvent(ctx, "oidc_token", sub, true)
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, subKey, sub)))
				return
			}
			m.logger.Warn(ctx, "token verification failed", "error", err)
		}

		m.logger.LogAuthEvent(ctx, "bearer_token", "", false)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})
}

type contextKey string

const subKey contextKey = "sub"

func GetSubFromContext(ctx context.Context) string {
	if sub, ok := ctx.Value(subKey).(string); ok {
		return sub
	}
	return ""
}
