package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyJWT(t *testing.T) {
	var seen string
	handler := VerifyJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
		user   string
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusNoContent, "u1"},
		{"query token", "", valid, http.StatusNoContent, "u1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u1"}), "", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), "", http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), "", http.StatusUnauthorized, ""},
		{"malformed", "Bearer not-a-jwt", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			target := "/instances"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	token, err := extractBearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = extractBearerToken("abc")
	assert.Error(t, err)
}

func TestStatusWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	w.WriteHeader(http.StatusTeapot)
	n, err := w.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, w.statusCode)
	assert.Equal(t, n, w.bytesWritten)

	_, _, err = w.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}
