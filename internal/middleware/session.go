// Package middleware provides HTTP middleware for the consultant server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionIDKey is the context key for the browser session ID.
	SessionIDKey ContextKey = "session_id"

	// SessionTokenHeader carries a freshly issued token for API clients.
	SessionTokenHeader = "X-Session-Token"

	sessionIssuer = "sales-consultant"
)

var errNoSessionToken = errors.New("no session token")

// SessionConfig configures session cookies.
type SessionConfig struct {
	Secret     string
	CookieName string
	Secure     bool
}

// IssueSessionToken signs a session token whose subject is sessionID.
func IssueSessionToken(secret, sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  sessionID,
		Issuer:   sessionIssuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken validates a token and returns its session ID.
func ParseSessionToken(secret, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(sessionIssuer))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// Session binds every request to a session. The token is read from the
// Authorization header or the session cookie; requests without a valid
// token start a new session and receive a fresh cookie.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := sessionFromRequest(r, cfg)
			if err != nil {
				sessionID = uuid.Must(uuid.NewV7()).String()
				token, err := IssueSessionToken(cfg.Secret, sessionID)
				if err != nil {
					http.Error(w, `{"error":"failed to start session"}`, http.StatusInternalServerError)
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(SessionTokenHeader, token)
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

func sessionFromRequest(r *http.Request, cfg SessionConfig) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return ParseSessionToken(cfg.Secret, parts[1])
		}
	}

	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil {
		return "", errNoSessionToken
	}
	return ParseSessionToken(cfg.Secret, cookie.Value)
}

// GetSessionID gets the session ID from context.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(SessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
