package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/studenthub/marketplace/docs"
	"github.com/studenthub/marketplace/internal/api/handler"
	"github.com/studenthub/marketplace/internal/api/middleware"
	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
)

// RouterDeps carries everything the HTTP layer needs. The router builds no
// infrastructure of its own.
type RouterDeps struct {
	AuthService    ports.AuthService
	TokenVerifier  ports.TokenVerifier
	Principals     handler.PrincipalLookup
	Dependencies   map[string]handler.Pinger
	AllowedOrigins []string
	// Registry backs the HTTP metrics and /metrics. Nil means the default
	// Prometheus registry, which also holds the auth metrics.
	Registry       *prometheus.Registry
	Log            zerolog.Logger
	// Mount lets collaborating modules add their own routes behind the guard.
	Mount          func(e *echo.Echo, guard echo.MiddlewareFunc)
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.AllowedOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "marketplace",
		Registerer: registerer,
	}))

	guard := middleware.Auth(deps.TokenVerifier, deps.Log)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	e.POST("/auth", authHandler.Dispatch)
	e.GET("/auth", authHandler.Me, guard)

	// --- Admin routes ---
	admin := e.Group("/admin", guard, middleware.RBAC(domain.RoleAdmin))
	if deps.Principals != nil {
		principalHandler := handler.NewPrincipalHandler(deps.Principals, 0)
		admin.GET("/principals", principalHandler.FindByEmail)
	}

	if deps.Mount != nil {
		deps.Mount(e, guard)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Dependencies, deps.Log)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
