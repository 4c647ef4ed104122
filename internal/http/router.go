package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, queryH *QueryHandler) *gin.Engine {
	r := gin.New()

	// Logging con request id, recovery a JSON de error y CORS permisivo.
	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger), corsMiddleware())

	api := r.Group("/api")
	api.POST("/query", queryH.HandleQuery)
	api.POST("/insights", queryH.HandleInsights)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}

// zapLoggerMiddleware registra cada request con un id propio.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware convierte cualquier pánico no manejado en la respuesta
// genérica de error del API, manteniendo el body JSON bien formado.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("unhandled panic", zap.Any("panic", recovered))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "internal server error",
			"response": genericErrorResponse,
		})
	})
}

// corsMiddleware responde el preflight y agrega headers permisivos a todo.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
