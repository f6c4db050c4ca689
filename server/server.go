// Package server wires the HTTP stack: echo instance, middleware, the v1 API,
// health, and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/castoldi/stash/ai/metrics"
	"github.com/castoldi/stash/internal/profile"
	apiv1 "github.com/castoldi/stash/server/router/api/v1"
	"github.com/castoldi/stash/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	metrics    *metrics.Metrics
}

func NewServer(_ context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.Debug = p.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())

	m := metrics.New(prometheus.NewRegistry())

	s := &Server{
		Profile:    p,
		Store:      st,
		echoServer: e,
		apiV1:      apiv1.NewAPIV1Service(p, st, m),
		metrics:    m,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	s.apiV1.RegisterRoutes(e)
	return s, nil
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown")
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Status >= http.StatusInternalServerError {
				slog.Error("request failed",
					"method", v.Method, "uri", v.URI,
					"status", v.Status, "latency", v.Latency,
					"request_id", v.RequestID,
				)
				return nil
			}
			slog.Debug("request",
				"method", v.Method, "uri", v.URI,
				"status", v.Status, "latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
	})
}
