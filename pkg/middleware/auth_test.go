package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"devlog-shortener/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubVerifier struct {
	valid map[string]string
	calls int
}

func (s *stubVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	s.calls++
	if sub, ok := s.valid[rawToken]; ok {
		return sub, nil
	}
	return "", errors.New("token rejected")
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// echoSub writes the authenticated subject back to the client.
var echoSub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(GetSubFromContext(r.Context())))
})

func TestAuthenticate(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, logging.LevelDebug)
	verifier := &stubVerifier{valid: map[string]string{"oidc-token": "user-123"}}
	m := NewAuthMiddlewareWithVerifier(hashToken(t, "s3cret-token"), verifier, logger)
	handler := m.Authenticate(echoSub)

	tests := []struct {
		name         string
		header       string
		expectedCode int
		expectedSub  string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not a bearer token", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"empty bearer token", "Bearer ", http.StatusUnauthorized, ""},
		{"static token", "Bearer s3cret-token", http.StatusOK, "static"},
		{"oidc token", "Bearer oidc-token", http.StatusOK, "user-123"},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, tt.expectedSub, rr.Body.String())
			}
		})
	}
}

func TestAuthenticate_StaticTokenSkipsVerifier(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, logging.LevelInfo)
	verifier := &stubVerifier{}
	m := NewAuthMiddlewareWithVerifier(hashToken(t, "s3cret-token"), verifier, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer s3cret-token")
	rr := httptest.NewRecorder()
	m.Authenticate(echoSub).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, verifier.calls)
}

func TestAuthenticate_NoTokenSources(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, logging.LevelInfo)
	m := NewAuthMiddlewareWithVerifier("", nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	m.Authenticate(echoSub).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewAuthMiddleware(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, logging.LevelInfo)

	t.Run("rejects a value that is not a bcrypt hash", func(t *testing.T) {
		_, err := NewAuthMiddleware(context.Background(), AuthConfig{TokenHash: "plaintext"}, logger)
		assert.Error(t, err)
	})

	t.Run("accepts a bcrypt hash", func(t *testing.T) {
		m, err := NewAuthMiddleware(context.Background(), AuthConfig{TokenHash: hashToken(t, "tok")}, logger)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("unreachable issuer", func(t *testing.T) {
		_, err := NewAuthMiddleware(context.Background(), AuthConfig{IssuerURL: "http://127.0.0.1:1"}, logger)
		assert.Error(t, err)
	})
}

func TestAuthConfigConfigured(t *testing.T) {
	assert.False(t, AuthConfig{}.Configured())
	assert.False(t, AuthConfig{Audience: "devlog"}.Configured())
	assert.True(t, AuthConfig{TokenHash: "x"}.Configured())
	assert.True(t, AuthConfig{IssuerURL: "https://issuer.example"}.Configured())
}

func TestGetSubFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", GetSubFromContext(context.Background()))
}
