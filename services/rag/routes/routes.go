package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/engine"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/handlers"
)

// SetupRoutes registers the chatbot API, metrics, and static UI on the
// router.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, uiDir string) {
	router.Use(otelgin.Middleware("ragserver"))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/query", handlers.HandleQuery(eng))
		api.GET("/courses", handlers.HandleCourseStats(eng))
		api.DELETE("/sessions/:sessionId", handlers.HandleClearSession(eng))
	}

	if uiDir != "" {
		router.StaticFS("/ui", http.Dir(uiDir))
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
		})
	}
}
