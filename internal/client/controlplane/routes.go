package controlplane

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/plugsync/internal/client/middleware"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// SetupRoutes builds the control plane router.
func SetupRoutes(backend Backend, config *Config) http.Handler {
	r := gin.New()

	limit := config.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	rateLimiter := limiter.New(memory.NewStore(), limiter.Rate{
		Period: time.Second,
		Limit:  limit,
	})

	h := NewHandlers(backend)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(mgin.NewMiddleware(rateLimiter))

	r.GET("/", h.Index)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(middleware.TokenAuthConfig{Token: config.AuthToken}))
	{
		v1.GET("/status", h.Status)
		v1.GET("/files", h.Files)
		v1.POST("/sync/now", h.SyncNow)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, &ErrorResponse{Code: "ERR_NOT_FOUND", Error: "not found"})
	})

	return r.Handler()
}
