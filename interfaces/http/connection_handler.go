package http

import (
	"net/http"

	"newsroom/usecase"

	"github.com/gin-gonic/gin"
)

type IConnectionHandler interface {
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
}

type ConnectionHandler struct {
	reconcilerUsecase usecase.IReconcilerUsecase
}

func NewConnectionHandler(reconcilerUsecase usecase.IReconcilerUsecase) IConnectionHandler {
	return &ConnectionHandler{reconcilerUsecase: reconcilerUsecase}
}

func (h *ConnectionHandler) List(ctx *gin.Context) {
	all, err := h.reconcilerUsecase.HealthAll(ctx.Request.Context(), ownerID(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connections": all})
}

func (h *ConnectionHandler) Get(ctx *gin.Context) {
	health, err := h.reconcilerUsecase.Health(ctx.Request.Context(), ownerID(ctx), ctx.Param("platform"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, health)
}
