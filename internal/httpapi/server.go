// internal/httpapi/server.go

// Package httpapi exposes the clinical engines over a small REST surface.
// It is a thin adapter: all decision logic lives in internal/clinical and
// internal/router, the handlers only translate HTTP to engine calls.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meditrek/clinpilot/internal/config"
	"github.com/meditrek/clinpilot/internal/router"
	"github.com/meditrek/clinpilot/internal/store"
)

// Server wires the engines behind an echo instance.
type Server struct {
	echo   *echo.Echo
	router *router.AIRouter

	diagnosis    *DiagnosisHandler
	treatment    *TreatmentHandler
	interactions *InteractionHandler
	labs         *LabHandler
	summary      *SummaryHandler

	patients *store.PatientStore // nil when no database is configured
	listen   string
	logger   *zap.Logger
}

// Engines groups the clinical engines the server fronts.
type Engines struct {
	Diagnosis    DiagnosisGenerator
	Treatment    TreatmentGenerator
	Interactions InteractionChecker
	Labs         LabAnalyzer
	Summary      Summarizer
}

// NewServer builds the REST server. patients may be nil; the patient context
// endpoint is only registered when a store is available.
func NewServer(cfg config.ServerConfig, r *router.AIRouter, engines Engines, patients *store.PatientStore, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	log := logger.Named("http")

	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit),
			Burst:     cfg.RateBurst,
			ExpiresIn: 3 * time.Minute,
		}),
	}))

	s := &Server{
		echo:         e,
		router:       r,
		diagnosis:    &DiagnosisHandler{engine: engines.Diagnosis},
		treatment:    &TreatmentHandler{engine: engines.Treatment},
		interactions: &InteractionHandler{checker: engines.Interactions},
		labs:         &LabHandler{analyzer: engines.Labs},
		summary:      &SummaryHandler{summarizer: engines.Summary},
		patients:     patients,
		listen:       cfg.Listen,
		logger:       log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.echo.Group("/api/v1")

	analyze := v1.Group("/analyze")
	analyze.POST("/diagnosis", s.diagnosis.Handle)
	analyze.POST("/treatment", s.treatment.Handle)
	analyze.POST("/drug-interactions", s.interactions.Handle)
	analyze.POST("/labs", s.labs.Handle)
	analyze.POST("/summary", s.summary.Handle)

	v1.GET("/health/providers", s.handleProviderHealth)

	if s.patients != nil {
		v1.GET("/patients/:tckn/context", s.handlePatientContext)
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("REST server listening", zap.String("addr", s.listen))
	if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler { return s.echo }

// handleProviderHealth probes every registered provider and reports a map of
// provider name to reachability.
func (s *Server) handleProviderHealth(c echo.Context) error {
	results := s.router.HealthCheckAll(c.Request().Context())

	healthy := true
	for _, ok := range results {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{
		"healthy":   healthy,
		"providers": results,
	})
}

// handlePatientContext assembles and returns the stored clinical context for
// one patient. Read-only; exists so operators can inspect what the engines see.
func (s *Server) handlePatientContext(c echo.Context) error {
	tckn := c.Param("tckn")
	cc, err := s.patients.GetClinicalContext(c.Request().Context(), tckn)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, cc)
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Warn("Request failed", fields...)
				return nil
			}
			log.Info("Request handled", fields...)
			return nil
		},
	})
}
