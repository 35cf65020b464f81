package http

import (
	"net/http"
	"net/url"

	"newsroom/domain/model"
	"newsroom/infrastructure/logger"
	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type IOAuthHandler interface {
	Connect(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
	Refresh(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
}

type OAuthHandler struct {
	oauthUsecase usecase.IOAuthUsecase
}

func NewOAuthHandler(oauthUsecase usecase.IOAuthUsecase) IOAuthHandler {
	return &OAuthHandler{oauthUsecase: oauthUsecase}
}

// Connect returns the provider URL, or redirects to it when ?redirect=true.
func (h *OAuthHandler) Connect(ctx *gin.Context) {
	authURL, err := h.oauthUsecase.InitiateConnect(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"), ctx.Query("return_url"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if ctx.Query("redirect") == "true" {
		ctx.Redirect(http.StatusFound, authURL)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback is public: the provider redirects the browser here without our bearer token.
func (h *OAuthHandler) Callback(ctx *gin.Context) {
	params := model.CallbackParams{
		State:            ctx.Query("state"),
		Code:             ctx.Query("code"),
		OAuthToken:       ctx.Query("oauth_token"),
		OAuthVerifier:    ctx.Query("oauth_verifier"),
		Denied:           ctx.Query("denied"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
	}
	platform := ctx.Param("platform")
	// Owner comes from the stored state, not from a session.
	out, err := h.oauthUsecase.HandleCallback(ctx.Request.Context(), "", platform, params)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if out.ReturnURL != "" {
		if u, perr := url.Parse(out.ReturnURL); perr == nil {
			q := u.Query()
			q.Set("connected", platform)
			u.RawQuery = q.Encode()
			ctx.Redirect(http.StatusFound, u.String())
			return
		}
		logger.GetLogger().WithField("platform", platform).Warn("Ignoring unparsable return URL")
	}
	ctx.JSON(http.StatusOK, out.Status)
}

func (h *OAuthHandler) Status(ctx *gin.Context) {
	st, err := h.oauthUsecase.Status(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, st)
}

func (h *OAuthHandler) Refresh(ctx *gin.Context) {
	st, err := h.oauthUsecase.Refresh(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, st)
}

func (h *OAuthHandler) Disconnect(ctx *gin.Context) {
	if err := h.oauthUsecase.Disconnect(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
