package http

import (
	"net/http"

	"newsroom/domain/dto"
	"newsroom/domain/model"
	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type ICredentialHandler interface {
	SaveAIKey(ctx *gin.Context)
	SaveSetup(ctx *gin.Context)
	GetSetup(ctx *gin.Context)
	DeleteSetup(ctx *gin.Context)
}

type CredentialHandler struct {
	credentialUsecase usecase.ICredentialUsecase
}

func NewCredentialHandler(credentialUsecase usecase.ICredentialUsecase) ICredentialHandler {
	return &CredentialHandler{credentialUsecase: credentialUsecase}
}

func (h *CredentialHandler) SaveAIKey(ctx *gin.Context) {
	var req dto.SaveAIKeyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := h.credentialUsecase.SaveAIKey(ctx.Request.Context(), ownerID(ctx), req.Provider, req.APIKey); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"provider": req.Provider, "saved": true})
}

func (h *CredentialHandler) SaveSetup(ctx *gin.Context) {
	var req dto.SaveSetupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	setup, err := h.credentialUsecase.SaveSetup(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"), model.SetupInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, setup)
}

func (h *CredentialHandler) GetSetup(ctx *gin.Context) {
	setup, err := h.credentialUsecase.GetSetup(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, setup)
}

func (h *CredentialHandler) DeleteSetup(ctx *gin.Context) {
	if err := h.credentialUsecase.DeleteSetup(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
