package model

import "github.com/golang-jwt/jwt"

// UserClaims are the bearer token claims issued by the account service.
type UserClaims struct {
	UserName string `json:"user_name,omitempty"`
	Tier     string `json:"tier,omitempty"`
	jwt.StandardClaims
}

// OwnerID prefers the subject and falls back to the issuer for older tokens.
func (c UserClaims) OwnerID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Issuer
}
