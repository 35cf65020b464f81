package http

import (
	"net/http"

	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type IQuotaHandler interface {
	Usage(ctx *gin.Context)
}

type QuotaHandler struct {
	quotaUsecase usecase.IQuotaUsecase
}

func NewQuotaHandler(quotaUsecase usecase.IQuotaUsecase) IQuotaHandler {
	return &QuotaHandler{quotaUsecase: quotaUsecase}
}

func (h *QuotaHandler) Usage(ctx *gin.Context) {
	d, err := h.quotaUsecase.Usage(ctx.Request.Context(), ownerID(ctx), tier(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, d)
}
