package http

import (
	"errors"
	"net/http"

	"newsroom/domain/dto"
	"newsroom/domain/model"
	"newsroom/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// ErrorStatus maps the domain error taxonomy to an HTTP status and body.
func ErrorStatus(err error) (int, dto.ErrorRes) {
	var (
		decErr   *model.DecryptError
		oauthErr *model.OAuthProviderError
	)
	switch {
	case errors.As(err, &decErr):
		return http.StatusInternalServerError, dto.ErrorRes{Error: "credential_corrupt", Kind: "credential_corrupt", Message: "a stored credential could not be decrypted"}
	case errors.As(err, &oauthErr):
		status := http.StatusBadRequest
		if oauthErr.Kind == model.OAuthServerError {
			status = http.StatusBadGateway
		}
		return status, dto.ErrorRes{Error: "oauth_error", Kind: string(oauthErr.Kind), Message: oauthErr.Description}
	case errors.Is(err, model.ErrCredentialsNotConfigured):
		return http.StatusPreconditionRequired, dto.ErrorRes{Error: "credentials_not_configured", Kind: "credentials_not_configured", Message: err.Error()}
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests, dto.ErrorRes{Error: "quota_exceeded", Kind: "quota_exceeded", Message: err.Error()}
	case errors.Is(err, model.ErrConnectionExpiredOrRevoked):
		return http.StatusUnauthorized, dto.ErrorRes{Error: "connection_expired_or_revoked", Kind: "connection_expired_or_revoked", Message: err.Error()}
	case errors.Is(err, model.ErrSettingsUnavailable):
		return http.StatusServiceUnavailable, dto.ErrorRes{Error: "settings_unavailable", Kind: "settings_unavailable"}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, dto.ErrorRes{Error: "not_found", Kind: "not_found", Message: err.Error()}
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, dto.ErrorRes{Error: "conflict", Kind: "conflict", Message: err.Error()}
	case errors.Is(err, model.ErrRefreshNotSupported):
		return http.StatusBadRequest, dto.ErrorRes{Error: "refresh_not_supported", Kind: "refresh_not_supported", Message: err.Error()}
	case errors.Is(err, model.ErrUnsupportedPlatform):
		return http.StatusBadRequest, dto.ErrorRes{Error: "invalid_input", Kind: "unsupported_platform", Message: err.Error()}
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, dto.ErrorRes{Error: "invalid_input", Kind: "invalid_input", Message: err.Error()}
	}
	return http.StatusInternalServerError, dto.ErrorRes{Error: "internal_error", Kind: "internal"}
}

func abortWithError(ctx *gin.Context, err error) {
	status, body := ErrorStatus(err)
	entry := logger.GetLogger().WithField("error", err).WithField("path", ctx.FullPath()).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	ctx.AbortWithStatusJSON(status, body)
}

func badRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid_input", Kind: "invalid_input", Message: err.Error()})
}

// PublishStatus is 200 when every platform succeeded, the class status when all failed
// the same way, and 207 for anything mixed.
func PublishStatus(results map[string]*model.PublishAttempt) int {
	if len(results) == 0 {
		return http.StatusOK
	}
	var class model.ErrorClass
	failed, same := 0, true
	for _, a := range results {
		if a.Status != model.AttemptFailed {
			continue
		}
		if failed == 0 {
			class = a.ErrorClass
		} else if a.ErrorClass != class {
			same = false
		}
		failed++
	}
	switch {
	case failed == 0:
		return http.StatusOK
	case failed < len(results) || !same:
		return http.StatusMultiStatus
	}
	switch class {
	case model.ErrorClassAuth:
		return http.StatusUnauthorized
	case model.ErrorClassPermission:
		return http.StatusForbidden
	case model.ErrorClassRateLimit:
		return http.StatusTooManyRequests
	case model.ErrorClassTransient:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func ownerID(ctx *gin.Context) string { return ctx.GetString("user_id") }

func tier(ctx *gin.Context) model.Tier {
	t, err := model.ParseTier(ctx.GetString("tier"))
	if err != nil {
		return model.TierFree
	}
	return t
}
