package http

import (
	"net/http"

	"newsroom/domain/dto"
	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type IGenerationHandler interface {
	Submit(ctx *gin.Context)
	Get(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	Retry(ctx *gin.Context)
}

type GenerationHandler struct {
	generationUsecase usecase.IGenerationUsecase
}

func NewGenerationHandler(generationUsecase usecase.IGenerationUsecase) IGenerationHandler {
	return &GenerationHandler{generationUsecase: generationUsecase}
}

func (h *GenerationHandler) Submit(ctx *gin.Context) {
	var req dto.SubmitGenerationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	id, err := h.generationUsecase.Submit(ctx.Request.Context(), ownerID(ctx), tier(ctx), req.ArticleIDs, req.Platforms)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, dto.SubmitGenerationResponse{JobID: id})
}

func (h *GenerationHandler) Get(ctx *gin.Context) {
	job, err := h.generationUsecase.Status(ctx.Request.Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (h *GenerationHandler) Cancel(ctx *gin.Context) {
	job, err := h.generationUsecase.Cancel(ctx.Request.Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (h *GenerationHandler) Retry(ctx *gin.Context) {
	job, err := h.generationUsecase.Resubmit(ctx.Request.Context(), ownerID(ctx), tier(ctx), ctx.Param("id"), ctx.Param("platform"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, job)
}
