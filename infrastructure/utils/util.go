package utils

import (
	"crypto/rand"
	"encoding/hex"

	"newsroom/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

// GenerateToken signs payload with HS256.
func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// RandomState returns a 128-bit hex token suitable for OAuth state values.
func RandomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
