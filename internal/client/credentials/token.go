package credentials

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// TokenExpiration decodes the exp claim of a JWT without verifying its
// signature. ok is false for malformed tokens and tokens without exp.
func TokenExpiration(token string) (exp time.Time, ok bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsTokenValid reports whether token's exp claim is in the future at now.
// It never panics and treats every malformed token as invalid.
func IsTokenValid(token string, now time.Time) bool {
	exp, ok := TokenExpiration(token)
	if !ok {
		return false
	}
	return exp.After(now)
}
