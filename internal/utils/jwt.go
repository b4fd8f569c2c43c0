package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims is the payload of a customer access token. The customer ID is
// carried both as the subject and as an explicit claim.
type accessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256-signed access token for the customer,
// expiring after ttl.
func GenerateToken(secret string, customerID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &accessClaims{
		UserID: customerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and returns the customer ID
// the token was issued for.
func ParseToken(secret, raw string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}
	return uuid.Parse(claims.UserID)
}
