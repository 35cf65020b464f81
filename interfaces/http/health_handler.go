package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(ctx *gin.Context)
}

// HealthHandler reports liveness and which backends the process wired at startup.
type HealthHandler struct {
	backends map[string]string
}

func NewHealthHandler(backends map[string]string) IHealthHandler {
	return &HealthHandler{backends: backends}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "backends": h.backends})
}
