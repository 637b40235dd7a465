package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// the control plane is read mostly, local tools may call it from a browser
var corsConfig = cors.Config{
	AllowAllOrigins: true,
	AllowMethods:    []string{"GET", "POST", "HEAD"},
	AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	MaxAge:          time.Hour,
}

func CORS() gin.HandlerFunc {
	return cors.New(corsConfig)
}
