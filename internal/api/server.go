// Package api serves the dashboard aggregates over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/pipeline"
)

type Server struct {
	echo    *echo.Echo
	service *pipeline.Service
	now     func() time.Time
	logger  *zap.Logger
}

func NewServer(service *pipeline.Service, logger *zap.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		service: service,
		now:     time.Now,
		logger:  logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.configureMiddleware()
	s.initRoutes()
	return s
}

func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Debug("Request served", fields...)
			return nil
		},
	}))
}

func (s *Server) initRoutes() {
	g := s.echo.Group("/api")
	g.GET("/fish-count", s.FishCount)
	g.GET("/biomass", s.Biomass)
	g.GET("/kfactor", s.KFactor)
	g.GET("/metrics/current", s.CurrentMetrics)
	g.GET("/weights", s.Weights)
	g.GET("/distribution/weight", s.WeightDistribution)
	g.GET("/distribution/length", s.LengthDistribution)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
