package middleware

import (
	"errors"
	"net/http"
	"strings"

	"newsroom/domain/dto"
	"newsroom/domain/model"
	"newsroom/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth verifies an HS256 bearer token and sets user_id and tier on the context.
// EventSource clients cannot send headers, so ?access_token= is accepted as well.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := bearerToken(ctx)
		if raw == "" {
			unauthorized(ctx, "missing bearer token")
			return
		}
		claims, err := parseClaims(raw, secretKey)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Rejected bearer token")
			unauthorized(ctx, rejectReason(err))
			return
		}
		owner := claims.OwnerID()
		if owner == "" {
			unauthorized(ctx, "token has no subject")
			return
		}
		tier, err := model.ParseTier(claims.Tier)
		if err != nil {
			tier = model.TierFree
		}
		ctx.Set("user_id", owner)
		ctx.Set("tier", string(tier))
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	authorization := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ctx.Query("access_token")
}

func parseClaims(raw, secretKey string) (model.UserClaims, error) {
	var claims model.UserClaims
	if secretKey == "" {
		return claims, errors.New("secret key not configured")
	}
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method " + token.Method.Alg())
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, errors.New("invalid token")
	}
	return claims, nil
}

func rejectReason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "malformed token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "token expired or not yet valid"
		}
	}
	return "invalid token"
}

func unauthorized(ctx *gin.Context, msg string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorRes{Error: "unauthorized", Kind: "unauthorized", Message: msg})
}
