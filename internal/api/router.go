package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/payment-intents/internal/handlers"
	"github.com/akylbek/payment-system/payment-intents/internal/service"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

func NewRouter(svc *service.IntentService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	intentHandler := handlers.NewIntentHandler(svc)
	r.POST("/payments", intentHandler.CreateIntent)
	r.GET("/payments", intentHandler.ListIntents)
	r.GET("/payments/:id", intentHandler.GetIntent)
	r.POST("/payments/:id/confirm", intentHandler.ConfirmIntent)

	return r
}
