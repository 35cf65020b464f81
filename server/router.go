package server

import (
	"time"

	httpHandler "newsroom/interfaces/http"
	"newsroom/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health     httpHandler.IHealthHandler
	Credential httpHandler.ICredentialHandler
	OAuth      httpHandler.IOAuthHandler
	Connection httpHandler.IConnectionHandler
	Generation httpHandler.IGenerationHandler
	Publish    httpHandler.IPublishHandler
	Quota      httpHandler.IQuotaHandler
	Stream     gin.HandlerFunc
}

func InitiateRouter(h Handlers, secretKey string, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	allowed := make(map[string]struct{}, len(corsOrigins))
	for _, o := range corsOrigins {
		allowed[o] = struct{}{}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)
	// Provider redirects land here without a bearer token; the state binds the owner.
	router.GET("/auth/:platform/callback", h.OAuth.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	api.PUT("/ai-key", h.Credential.SaveAIKey)
	api.PUT("/setup/:platform", h.Credential.SaveSetup)
	api.GET("/setup/:platform", h.Credential.GetSetup)
	api.DELETE("/setup/:platform", h.Credential.DeleteSetup)

	api.GET("/connections", h.Connection.List)
	api.GET("/connections/:platform", h.Connection.Get)

	api.GET("/oauth/:platform/connect", h.OAuth.Connect)
	api.GET("/oauth/:platform/status", h.OAuth.Status)
	api.POST("/oauth/:platform/refresh", h.OAuth.Refresh)
	api.DELETE("/oauth/:platform", h.OAuth.Disconnect)

	api.POST("/generations", h.Generation.Submit)
	api.GET("/generations/:id", h.Generation.Get)
	api.POST("/generations/:id/cancel", h.Generation.Cancel)
	api.POST("/generations/:id/platforms/:platform/retry", h.Generation.Retry)

	api.POST("/posts/:postId/publish", h.Publish.Publish)
	api.GET("/posts/:postId/attempts", h.Publish.Attempts)

	api.GET("/quota", h.Quota.Usage)
	if h.Stream != nil {
		api.GET("/stream", h.Stream)
	}

	return router
}
