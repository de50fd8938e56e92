package runtimeconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo holds the unverified claims of a JWT access token.
type TokenInfo struct {
	Role      string
	Ref       string
	ExpiresAt time.Time
}

// InspectToken reads the claims of a JWT access token without verifying
// its signature. The server never holds the signing secret; the claims
// are only used for startup warnings.
func InspectToken(token string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("parse access token: %w", err)
	}
	var info TokenInfo
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if ref, ok := claims["ref"].(string); ok {
		info.Ref = ref
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2 && strings.HasPrefix(token, "eyJ")
}

func tokenWarnings(token string) []string {
	if token == "" || !looksLikeJWT(token) {
		return nil
	}
	info, err := InspectToken(token)
	if err != nil {
		return []string{err.Error()}
	}
	var out []string
	if info.Role == "service_role" {
		out = append(out, "access token has role service_role and is exposed to browsers; use the anon key")
	}
	if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(time.Now()) {
		out = append(out, fmt.Sprintf("access token expired at %s", info.ExpiresAt.Format(time.RFC3339)))
	}
	return out
}
