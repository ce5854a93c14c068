package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in operator tokens
const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	Role string `json:"role"` // "operator" or "viewer"
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 tokens with one shared secret
type Signer struct {
	secret []byte
}

// NewSigner creates a signer; the secret comes from JWT_SECRET
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// GenerateToken generates a token for subject with the given role
func (s *Signer) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	if role != RoleOperator && role != RoleViewer {
		return "", fmt.Errorf("unknown role: %s", role)
	}
	now := time.Now()
	claims := &JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Signer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
