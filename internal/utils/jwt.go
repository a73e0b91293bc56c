// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// IdentityClaims are issued by the external identity provider. Only the
// subject is used: it is the caller's user id.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var (
	jwtSecret   []byte
	jwtIssuer   string
	errNoSecret = errors.New("identity verification is not configured")
)

func SetJWTSecret(secret, issuer string) {
	jwtSecret = []byte(secret)
	jwtIssuer = issuer
}

func IdentityEnabled() bool {
	return len(jwtSecret) > 0
}

// GenerateIdentityToken signs a token the same way the identity provider
// does. Used by tests and local tooling.
func GenerateIdentityToken(userID string, ttl time.Duration) (string, error) {
	if !IdentityEnabled() {
		return "", errNoSecret
	}
	now := time.Now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateIdentityToken(tokenString string) (*IdentityClaims, error) {
	if !IdentityEnabled() {
		return nil, errNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if jwtIssuer != "" && !claims.VerifyIssuer(jwtIssuer, true) {
		return nil, errors.New("unexpected token issuer")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
