package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onkernel/hypedesk/lib/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// tokenQueryParam carries the token for websocket upgrades, which browsers
// cannot send headers on.
const tokenQueryParam = "token"

// VerifyJWT validates HMAC-signed bearer tokens and puts the subject in the
// request context. Tokens without a subject are rejected: every instance
// operation is scoped to it.
func VerifyJWT(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			token, err := requestToken(r)
			if err != nil {
				log.WarnContext(r.Context(), "missing or malformed credentials", "error", err)
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}

			userID, err := parseSubject(token, jwtSecret)
			if err != nil {
				log.WarnContext(r.Context(), "rejected token", "error", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func requestToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return extractBearerToken(header)
	}
	if t := r.URL.Query().Get(tokenQueryParam); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("no authorization header or %s parameter", tokenQueryParam)
}

func parseSubject(token, secret string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("token not valid")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// extractBearerToken extracts the token from "Bearer <token>" format
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid authorization header format")
	}

	scheme := strings.ToLower(parts[0])
	if scheme != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme: %s", scheme)
	}

	return parts[1], nil
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext extracts the user ID from context
func GetUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}
