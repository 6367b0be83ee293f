package remotestore

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router serves POST /v1/actions/:tag behind bearer auth, plus an open GET /healthz.
func (s *Server) Router(settings config.ServerSettings) *gin.Engine {
	if settings.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())

	corsConfig := cors.DefaultConfig()
	if settings.Production {
		// Deny all unless an allowlist is configured.
		corsConfig.AllowOrigins = settings.AllowedOrigins
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOrigins = []string{}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length")
	r.Use(cors.New(corsConfig))
	r.Use(middlewares.ErrorLogger(s.logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		if s.db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// /healthz stays outside the limiter so a throttled device does not look offline.
	v1 := r.Group("/v1")
	if s.redis != nil && settings.RateLimit > 0 {
		v1.Use(middlewares.NewRateLimiter(s.redis, settings.RateLimit, settings.RateWindow, s.logger).Middleware())
	}
	v1.Use(middlewares.AuthMiddleware(), middlewares.SessionMiddleware(s.redis, s.logger))
	v1.POST("/actions/:tag", s.applyHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, action.ErrorResponse{Code: "not_found", Message: "route not found"})
	})
	return r
}

func (s *Server) applyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		accountID, _ := utils.GetAccountIdFromContext(ctx)

		var req action.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, action.ErrorResponse{Code: "bad_request", Message: "invalid request body"})
			return
		}
		if req.RequestId == "" {
			req.RequestId = c.GetHeader("Idempotency-Key")
		}

		resp, err := s.Apply(ctx, accountID, req.RequestId, action.Tag(c.Param("tag")), req.Payload)
		if err == nil {
			c.JSON(http.StatusOK, resp)
			return
		}

		var rejection *utils.RemoteRejectionError
		var expired *utils.AuthExpiredError
		switch {
		case errors.As(err, &rejection):
			c.JSON(rejection.Status, action.ErrorResponse{Code: rejection.Code, Message: rejection.Reason})
		case errors.As(err, &expired):
			c.JSON(http.StatusUnauthorized, action.ErrorResponse{Code: "unauthorized", Message: err.Error()})
		case errors.Is(err, ErrIdempotencyInProgress):
			c.Header("Retry-After", "5")
			c.JSON(http.StatusServiceUnavailable, action.ErrorResponse{Code: "in_progress", Message: "request is being applied"})
		default:
			config.LogError(s.logger, "router.go", "applyHandler", "apply action", c.Param("tag"), err)
			c.JSON(http.StatusInternalServerError, action.ErrorResponse{Code: "internal", Message: "internal error"})
		}
	}
}
