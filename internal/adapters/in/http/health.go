package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/delivery-date-availability/internal/config"
)

func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config) {
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})
}
