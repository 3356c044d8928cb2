package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-authoring/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-authoring/internal/http/middleware"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	ContentHandler *httpH.ContentHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.ContentHandler != nil {
		h := cfg.ContentHandler
		api.GET("/modes", h.ListModes)

		api.POST("/content", h.Create)
		api.GET("/content", h.List)
		api.GET("/content/:id", h.Get)
		api.PATCH("/content/:id", h.Save)
		api.POST("/content/:id/status", h.TransitionStatus)

		// Generation
		api.POST("/content/:id/generate", h.Generate)
		api.POST("/content/:id/apply", h.Apply)
		api.POST("/content/:id/review", h.Review)

		// Versions
		api.GET("/content/:id/versions", h.ListVersions)
		api.GET("/content/:id/versions/:versionId", h.GetVersion)
		api.POST("/content/:id/versions/:versionId/restore", h.Restore)
	}

	return r
}
