package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"milebot/internal/config"
)

// CORS Cross-Origin Resource Sharing middleware. The webhook server is
// only hit by the payment gateway and health probes, so the defaults
// are permissive unless the config narrows them.
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	if len(cfg.Security.CORS.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.CORS.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"X-Requested-With",
	}
	corsConfig.AllowCredentials = cfg.Security.CORS.AllowCredentials
	if cfg.Security.CORS.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.Security.CORS.MaxAge) * time.Second
	}

	return cors.New(corsConfig)
}
