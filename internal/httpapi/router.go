package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"presence/internal/attendance"
	"presence/internal/auth"
	"presence/internal/httpmiddleware"
	"presence/internal/obs"
	"presence/internal/users"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Options tune the router.
type Options struct {
	ProfileReadRequiresAuth bool
	CORSAllowedOrigins      []string
	RateLimiter             *httpmiddleware.RateLimiter
	HealthChecks            map[string]Pinger
}

// API wires the domain services to HTTP.
type API struct {
	auth       *auth.Service
	attendance *attendance.Service
	users      *users.Service
	opts       Options
}

// New creates the HTTP API.
func New(authSvc *auth.Service, attendanceSvc *attendance.Service, usersSvc *users.Service, opts Options) *API {
	return &API{auth: authSvc, attendance: attendanceSvc, users: usersSvc, opts: opts}
}

// Handler builds the gin engine with middleware and routes.
func (a *API) Handler() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(obs.GinMiddleware())
	r.Use(cors.New(a.corsConfig()))
	r.Use(httpmiddleware.SecurityHeaders())
	if a.opts.RateLimiter != nil {
		r.Use(a.opts.RateLimiter.GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(obs.Handler()))
	r.GET("/healthz", a.healthz)

	guard := auth.Guard(a.auth.Tokens())

	api := r.Group("/api")
	api.POST("/auth/login", a.login)

	api.POST("/attendance", guard, a.createAttendance)
	api.GET("/attendance/filter", guard, a.filterAttendances)
	api.GET("/attendance", guard, a.listAttendances)

	if a.opts.ProfileReadRequiresAuth {
		api.GET("/users/:userId", guard, a.getUser)
	} else {
		api.GET("/users/:userId", a.getUser)
	}
	api.PATCH("/users/:userId", guard, a.editUser)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(a.opts.CORSAllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = a.opts.CORSAllowedOrigins
	}
	return cfg
}

func (a *API) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, p := range a.opts.HealthChecks {
		healthy := p.Healthy(ctx)
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
