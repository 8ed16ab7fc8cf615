package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanspareilsmyn/fishlens/internal/notify"
	"github.com/sanspareilsmyn/fishlens/internal/pipeline"
	"github.com/sanspareilsmyn/fishlens/internal/record"
)

// Response wraps every aggregate with the notices raised while computing it.
type Response struct {
	Data          interface{}           `json:"data"`
	Notifications []notify.Notification `json:"notifications"`
}

type computeFunc func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{}

// FishCount handles GET /api/fish-count
func (s *Server) FishCount(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.FishCount(ctx, f)
	})
}

// Biomass handles GET /api/biomass
func (s *Server) Biomass(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.Biomass(ctx, f)
	})
}

// KFactor handles GET /api/kfactor
func (s *Server) KFactor(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.KFactorSeries(ctx, f)
	})
}

// CurrentMetrics handles GET /api/metrics/current
func (s *Server) CurrentMetrics(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.CurrentMetrics(ctx, f)
	})
}

// Weights handles GET /api/weights
func (s *Server) Weights(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.WeightSamples(ctx, f)
	})
}

// WeightDistribution handles GET /api/distribution/weight
func (s *Server) WeightDistribution(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.WeightDistribution(ctx, f)
	})
}

// LengthDistribution handles GET /api/distribution/length
func (s *Server) LengthDistribution(c echo.Context) error {
	return s.serve(c, func(svc *pipeline.Service, ctx context.Context, f record.DashboardFilters) interface{} {
		return svc.LengthDistribution(ctx, f)
	})
}

// serve binds the filters, runs compute with a per-request collector in
// front of the service's own notifier and writes the response.
func (s *Server) serve(c echo.Context, compute computeFunc) error {
	filters, err := s.bindFilters(c)
	if err != nil {
		return err
	}

	collector := &notify.Collector{}
	svc := s.service.WithNotifier(notify.Multi{s.service.Notifier(), collector})
	data := compute(svc, c.Request().Context(), filters)

	return c.JSON(http.StatusOK, Response{
		Data:          data,
		Notifications: collector.Notifications(),
	})
}

// bindFilters starts from the default filters and overrides whatever the
// query string carries.
func (s *Server) bindFilters(c echo.Context) (record.DashboardFilters, error) {
	filters := record.DefaultFilters(s.now())
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filters); err != nil {
		return filters, echo.NewHTTPError(http.StatusBadRequest, "Invalid filter parameters").SetInternal(err)
	}
	if err := filters.Validate(); err != nil {
		return filters, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return filters, nil
}
