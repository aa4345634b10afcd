// Package api wires together all HTTP routes for the club service.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated so load balancers and
//     orchestrators can probe the service without credentials.
//   - Everything under /v1/ requires a bearer token. The admission endpoints
//     (join, redeem) additionally carry a stricter rate limit because each
//     call can burn a passcode attempt or an invite use.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/campus5/club-service/internal/admission"
	"github.com/campus5/club-service/internal/api/clubs"
	"github.com/campus5/club-service/internal/api/invites"
	"github.com/campus5/club-service/internal/audit"
	"github.com/campus5/club-service/internal/config"
	"github.com/campus5/club-service/internal/db/repositories"
	"github.com/campus5/club-service/internal/jobs"
	"github.com/campus5/club-service/internal/middleware"
	"github.com/campus5/club-service/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	requestExpirer *jobs.RequestExpirer
	rateLimiters   []*middleware.RateLimiter
	auditShipper   audit.Shipper
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.requestExpirer != nil {
		bg.requestExpirer.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. redisClient may be nil; in
// that case passcode attempt sessions and rate limiting fall back to
// in-process implementations.
func NewRouter(cfg *config.Config, db *sql.DB, redisClient *redis.Client) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	clubRepo := repositories.NewClubRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Wrap *sql.DB with sqlx for the transactional repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	requestRepo := repositories.NewJoinRequestRepository(sqlxDB)
	inviteRepo := repositories.NewInviteTokenRepository(sqlxDB)

	// Passcode attempt sessions live in Redis when available so the budget
	// holds across replicas; otherwise they are process-local.
	var attempts admission.AttemptStore
	if redisClient != nil {
		attempts = admission.NewRedisAttemptStore(redisClient, cfg.Admission.SessionTTL)
	} else {
		attempts = admission.NewMemoryAttemptStore(cfg.Admission.SessionTTL)
	}
	guard := admission.NewPasscodeGuard(attempts, cfg.Admission.AttemptBudget)

	controller := admission.NewController(
		clubRepo, membershipRepo, requestRepo, inviteRepo,
		guard, cfg.Admission.InvitePrefix,
	)

	// Start the pending request expirer
	requestExpirer := jobs.NewRequestExpirer(requestRepo, cfg.Admission.RequestTTLHours)
	safego.Go(func() { requestExpirer.Start(context.Background()) })

	// Build the audit shipper chain from config
	auditShipper := buildAuditShipper(&cfg.Audit)

	// Add global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health, readiness, version: public
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, redisClient))
	router.GET("/version", versionHandler())

	// Initialize handlers
	clubHandlers := clubs.NewHandlers(clubRepo, membershipRepo, requestRepo, controller)
	inviteHandlers := invites.NewHandlers(inviteRepo, membershipRepo, controller)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	admissionRateLimiter := middleware.NewRateLimiter(middleware.AdmissionRateLimitConfig())
	rateLimiters := []*middleware.RateLimiter{generalRateLimiter, admissionRateLimiter}

	// admissionLimit returns the stricter limiter for join/redeem endpoints,
	// preferring the Redis GCRA limiter when a client is available so the
	// limit holds across replicas.
	admissionLimit := middleware.RateLimitMiddleware(admissionRateLimiter)
	generalLimit := middleware.RateLimitMiddleware(generalRateLimiter)
	if redisClient != nil {
		admissionLimit = middleware.RedisRateLimitMiddleware(redisClient, middleware.AdmissionRateLimitConfig())
		generalLimit = middleware.RedisRateLimitMiddleware(redisClient, middleware.DefaultRateLimitConfig())
	}

	// Authenticated API
	v1 := router.Group("/v1")
	if cfg.Security.RateLimiting.Enabled {
		v1.Use(generalLimit)
	}
	v1.Use(middleware.AuthMiddleware(userRepo))
	if cfg.Audit.Enabled {
		v1.Use(middleware.AuditMiddlewareWithShipper(auditRepo, auditShipper, &cfg.Audit))
	}
	{
		v1.POST("/clubs", clubHandlers.CreateClubHandler())
		v1.GET("/clubs", clubHandlers.ListClubsHandler())
		v1.GET("/clubs/:id", clubHandlers.GetClubHandler())
		v1.DELETE("/clubs/:id", clubHandlers.DeleteClubHandler())
		v1.GET("/clubs/:id/members", clubHandlers.ListMembersHandler())

		// Admission endpoints: stricter rate limit
		v1.POST("/clubs/:id/join", admissionLimit, clubHandlers.JoinHandler())
		v1.POST("/invites/:token/redeem", admissionLimit, inviteHandlers.RedeemInviteHandler())

		// Join request review (owner/officer checks live in the handlers)
		v1.GET("/clubs/:id/requests", clubHandlers.ListRequestsHandler())
		v1.POST("/clubs/:id/requests/:rid/resolve", clubHandlers.ResolveRequestHandler())

		// Invite management (owner/officer)
		v1.POST("/clubs/:id/invites", inviteHandlers.CreateInviteHandler())
		v1.GET("/clubs/:id/invites", inviteHandlers.ListInvitesHandler())
		v1.DELETE("/clubs/:id/invites/:token", inviteHandlers.RevokeInviteHandler())

		// Self-service
		v1.GET("/me/memberships", clubHandlers.MyMembershipsHandler())
	}

	bg := &BackgroundServices{
		requestExpirer: requestExpirer,
		rateLimiters:   rateLimiters,
		auditShipper:   auditShipper,
	}

	return router, bg
}

// buildAuditShipper converts the config shipper list into a MultiShipper.
// Returns nil when no shipper is enabled so the middleware only writes to the
// database.
func buildAuditShipper(auditCfg *config.AuditConfig) audit.Shipper {
	if !auditCfg.Enabled || len(auditCfg.Shippers) == 0 {
		return nil
	}

	shipperCfgs := make([]audit.ShipperConfig, 0, len(auditCfg.Shippers))
	for _, sc := range auditCfg.Shippers {
		if !sc.Enabled {
			continue
		}
		out := audit.ShipperConfig{Enabled: sc.Enabled, Type: sc.Type}
		if sc.Webhook != nil {
			out.Webhook = &audit.WebhookConfig{
				URL:     sc.Webhook.URL,
				Headers: sc.Webhook.Headers,
				Timeout: sc.Webhook.Timeout,
			}
		}
		if sc.File != nil {
			out.File = &audit.FileConfig{
				Path:       sc.File.Path,
				MaxSizeMB:  sc.File.MaxSizeMB,
				MaxBackups: sc.File.MaxBackups,
			}
		}
		shipperCfgs = append(shipperCfgs, out)
	}
	if len(shipperCfgs) == 0 {
		return nil
	}

	shipper, err := audit.NewMultiShipper(shipperCfgs)
	if err != nil {
		slog.Error("failed to initialize audit shippers, continuing with database only", "error", err)
		return nil
	}
	return shipper
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service. Unlike the
// liveness probe (/health), this also checks Redis when configured so a
// readiness gate fails while attempt sessions would error.
func readinessHandler(db *sql.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
