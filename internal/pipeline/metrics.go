package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

var (
	storeQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishlens_store_queries_total",
			Help: "Total queries issued to the backing store, one per batch.",
		},
		[]string{"collection", "status"}, // status: ok, error
	)
	storeQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fishlens_store_query_latency_seconds",
			Help:    "Store query latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
	storeRowsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishlens_store_rows_fetched_total",
			Help: "Total rows returned by the backing store.",
		},
		[]string{"collection"},
	)
	aggregateRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishlens_aggregate_runs_total",
			Help: "Aggregate computations by outcome.",
		},
		[]string{"aggregate", "outcome"}, // outcome: ok, no_data, failed
	)
	aggregateInRange = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fishlens_aggregate_inrange_measurements",
			Help: "Measurements inside the requested date range on the last run of an aggregate.",
		},
		[]string{"aggregate"},
	)
	tankBiomass = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fishlens_tank_biomass_kg",
		Help: "Estimated tank biomass from the last current-metrics run.",
	})
	tankAverageWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fishlens_tank_average_weight_grams",
		Help: "Average fish weight from the last current-metrics run.",
	})
	tankAverageLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fishlens_tank_average_length_cm",
		Help: "Average fish length from the last current-metrics run.",
	})
	tankKFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fishlens_tank_kfactor",
		Help: "Fulton's condition factor from the last current-metrics run.",
	})
)

const (
	outcomeOK     = "ok"
	outcomeNoData = "no_data"
	outcomeFailed = "failed"
)

// instrumentedQuerier records per-query metrics for any store.Querier.
type instrumentedQuerier struct {
	next store.Querier
}

func (q instrumentedQuerier) Select(ctx context.Context, query store.Query) ([]record.Record, error) {
	start := time.Now()
	rows, err := q.next.Select(ctx, query)
	storeQueryLatency.WithLabelValues(query.Collection).Observe(time.Since(start).Seconds())
	if err != nil {
		storeQueries.WithLabelValues(query.Collection, "error").Inc()
		return nil, err
	}
	storeQueries.WithLabelValues(query.Collection, "ok").Inc()
	storeRowsFetched.WithLabelValues(query.Collection).Add(float64(len(rows)))
	return rows, nil
}

func publishTankMetrics(m TankMetrics) {
	tankBiomass.Set(m.TotalBiomass.Value)
	tankAverageWeight.Set(m.AverageWeight.Value)
	tankAverageLength.Set(m.AverageLength.Value)
	tankKFactor.Set(m.KFactor.Value)
}
