package http

import (
	"net/http"

	"newsroom/domain/dto"
	"newsroom/domain/model"
	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	Attempts(ctx *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

func (h *PublishHandler) Publish(ctx *gin.Context) {
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	postID := ctx.Param("postId")
	results, err := h.publishUsecase.Publish(ctx.Request.Context(), ownerID(ctx), tier(ctx), postID, req.Platforms)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(PublishStatus(results), gin.H{"post_id": postID, "results": results})
}

func (h *PublishHandler) Attempts(ctx *gin.Context) {
	list, err := h.publishUsecase.Attempts(ctx.Request.Context(), ownerID(ctx), ctx.Param("postId"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.PublishAttempt{}
	}
	ctx.JSON(http.StatusOK, gin.H{"post_id": ctx.Param("postId"), "attempts": list})
}
