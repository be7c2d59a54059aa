package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/clubefacil/agenda-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	MemberIDKey contextKey = "member_id"
	TokenKey    contextKey = "club_token"
)

// Handler verifies the club platform's bearer tokens. The token itself is
// opaque to the rest of the service: we validate it, lift the member id out
// of the claims, and keep the raw string so outbound club calls can forward
// it untouched.
type Handler struct {
	cfg *config.Config
}

func NewHandler(cfg *config.Config) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
			return
		}

		memberID, err := h.ParseMemberID(raw)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), MemberIDKey, memberID)
		ctx = context.WithValue(ctx, TokenKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseMemberID validates the token signature and returns the clienteId claim.
func (h *Handler) ParseMemberID(raw string) (int64, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	id, ok := claims["clienteId"].(float64)
	if !ok {
		return 0, fmt.Errorf("token missing clienteId claim")
	}
	return int64(id), nil
}

// MemberID returns the authenticated member's client id from the context.
func MemberID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(MemberIDKey).(int64)
	return id, ok
}

// Token returns the raw bearer token from the context.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(TokenKey).(string)
	return t
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
