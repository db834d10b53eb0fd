// Package auth issues and validates the HS256 session tokens shared by the
// client session store and the server bearer middleware.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the session identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	SessionID string `json:"sid,omitempty"`
	Role      string `json:"role,omitempty"`
}

// GenerateToken signs a token for the given identity valid for validity.
func GenerateToken(userID, sessionID, role string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			Subject:   userID,
		},
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken is a shorthand for ParseToken(...).UserID.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
