// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Engine    Replayer
	Catalog   *storage.Catalog
	Registry  ReplayRegistry
	Ledger    storage.UserLedger
	Calc      charge.Calculator
	Gatherer  prometheus.Gatherer
	Logger    logrus.FieldLogger
	Version   string
	RateLimit float64
	RateBurst int
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	CAN    CANHandler
	Carbon CarbonHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Registry),
		CAN:    NewCANHandler(deps.Engine, deps.Catalog, deps.Registry, deps.Calc, deps.Logger),
		Carbon: NewCarbonHandler(deps.Ledger, deps.Calc, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, deps *Dependencies) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	canGroup := apiGroup.Group("/can")
	limited := RateLimit(deps.RateLimit, deps.RateBurst)

	// Replay routes
	canGroup.GET("/charge-monitor", handlers.CAN.HandleChargeMonitor, limited)
	canGroup.GET("/charge-summary", handlers.CAN.HandleChargeSummary, limited)
	canGroup.GET("/config", handlers.CAN.HandleCanConfig)
	canGroup.GET("/replays", handlers.CAN.HandleListReplays)

	// Carbon ledger routes
	canGroup.POST("/carbon-reduction/save", handlers.Carbon.HandleSaveCarbonReduction)
	canGroup.GET("/carbon-reduction", handlers.Carbon.HandleGetCarbonReduction)
	canGroup.POST("/carbon-points/save", handlers.Carbon.HandleSaveCarbonPoints)
	canGroup.GET("/carbon-points", handlers.Carbon.HandleGetCarbonPoints)

	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	Logger         *logrus.Logger
	RequestLogging bool
	RequestTimeout time.Duration
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   string
}

// isStreamRequest reports whether the request holds its connection for a replay
func isStreamRequest(c echo.Context) bool {
	return strings.HasSuffix(c.Request().URL.Path, "/charge-monitor") ||
		c.Request().Header.Get(echo.HeaderAccept) == "text/event-stream"
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	if opts.Logger != nil {
		logger := opts.Logger
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				// Skip logging if disabled in config
				if !opts.RequestLogging {
					return true
				}
				path := c.Request().URL.Path
				return path == "/api/health" || path == "/metrics"
			},
			LogURI:     true,
			LogStatus:  true,
			LogMethod:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				entry := logger.WithFields(logrus.Fields{
					"method":  v.Method,
					"uri":     v.URI,
					"status":  v.Status,
					"latency": v.Latency,
				})
				if v.Error != nil {
					entry.WithError(v.Error).Warn("request failed")
					return nil
				}
				entry.Info("request")
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				return isStreamRequest(c) || strings.HasSuffix(c.Request().URL.Path, "/charge-summary")
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: isStreamRequest,
	}))

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := strings.Split(opts.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderUserID},
		}))
	}
}
