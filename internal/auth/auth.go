// Package auth validates bearer tokens against an external identity
// provider and enforces the admin role on mutating routes. Being
// unauthenticated (401) and being authenticated without the admin role
// (403) are distinct conditions.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// AdminRole is the app_metadata role required for catalog mutations.
const AdminRole = "admin"

// User is the slice of the identity provider's user object we care about.
type User struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the user carries the admin role claim.
func (u *User) IsAdmin() bool { return u.Role == AdminRole }

// Verifier resolves bearer tokens through the identity provider's user
// endpoint.
type Verifier struct {
	client  *http.Client
	userURL string
	apiKey  string
}

// NewVerifier points at the identity provider base URL. The optional apiKey
// is sent alongside the user token, as the provider requires.
func NewVerifier(baseURL, apiKey string) *Verifier {
	return &Verifier{
		client:  &http.Client{Timeout: 10 * time.Second},
		userURL: strings.TrimRight(baseURL, "/") + "/auth/v1/user",
		apiKey:  apiKey,
	}
}

// UserFromToken asks the provider who the token belongs to. Any non-200
// answer means the token is invalid or expired.
func (v *Verifier) UserFromToken(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}
	return &User{
		ID:    gjson.GetBytes(body, "id").String(),
		Email: gjson.GetBytes(body, "email").String(),
		Role:  gjson.GetBytes(body, "app_metadata.role").String(),
	}, nil
}

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type contextKey struct{}

// UserFromContext returns the authenticated user stored by Middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok
}

// Middleware rejects requests without a valid admin token: 401 when the
// token is missing or rejected, 403 when the user exists but lacks the
// admin role.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := v.UserFromToken(r.Context(), token)
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, user)))
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
