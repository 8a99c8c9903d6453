// Package auth issues and verifies the bearer tokens of the admin API.
package auth

import (
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the admin principal in addition to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	AdminID string `json:"admin_id"`
}

func GenerateToken(adminID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AdminID: adminID,
	})

	return token.SignedString(secretKey)
}

func GetAdminIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.AdminID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.AdminID, nil
}
