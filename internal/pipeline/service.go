package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/config"
	"github.com/sanspareilsmyn/fishlens/internal/notify"
	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/stats"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

const transportHint = "Possible cause: request URL too large. Try narrowing the date range."

// aggregate names one computation for notification titles and metric labels.
type aggregate struct {
	title  string
	metric string
}

var (
	aggFishCount      = aggregate{title: "Fish Count", metric: "fish_count"}
	aggBiomass        = aggregate{title: "Biomass", metric: "biomass"}
	aggKFactor        = aggregate{title: "K-Factor", metric: "kfactor"}
	aggWeights        = aggregate{title: "Weights", metric: "weights"}
	aggCurrentMetrics = aggregate{title: "Current Metrics", metric: "current_metrics"}
)

// Service computes the dashboard aggregates. Every call re-reads the store;
// nothing is cached between calls. Aggregates never return an error:
// failures produce a placeholder value and a notification.
type Service struct {
	querier       store.Querier
	fetcher       *BatchFetcher
	joiner        *Joiner
	census        int
	loc           *time.Location
	weightSamples int
	notifier      notify.Notifier
	rng           *lockedSource
	now           func() time.Time
	logger        *zap.Logger
}

// NewService wires the pipeline over q. A nil notifier discards notices.
func NewService(q store.Querier, cfg *config.Config, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop
	}
	instrumented := instrumentedQuerier{next: q}
	fetcher := NewBatchFetcher(instrumented, cfg.Fetch.BatchSize, cfg.Fetch.Concurrency, logger.Named("fetcher"))
	loc := cfg.Tank.Location()

	s := &Service{
		querier:       instrumented,
		fetcher:       fetcher,
		joiner:        NewJoiner(fetcher, loc, logger.Named("joiner")),
		census:        cfg.Tank.Census,
		loc:           loc,
		weightSamples: cfg.Tank.WeightSamples,
		notifier:      notifier,
		rng:           &lockedSource{src: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
		now:           time.Now,
		logger:        logger,
	}
	logger.Info("Aggregation service initialized",
		zap.Int("batch_size", fetcher.batchSize),
		zap.Int("concurrency", fetcher.concurrency),
		zap.Int("tank_census", s.census),
		zap.String("timezone", s.loc.String()),
	)
	return s
}

// WithNotifier returns a copy of s that reports to n instead. The copy
// shares the store and random source.
func (s *Service) WithNotifier(n notify.Notifier) *Service {
	c := *s
	c.notifier = n
	return &c
}

// WithRandSource replaces the uniform source behind the synthetic samples.
func (s *Service) WithRandSource(src stats.Float64Source) *Service {
	c := *s
	c.rng = &lockedSource{src: src}
	return &c
}

// Census is the assumed number of fish in the tank.
func (s *Service) Census() int { return s.census }

// Notifier is where s reports failed aggregates.
func (s *Service) Notifier() notify.Notifier { return s.notifier }

// readMeasurements reads the given columns of every measurement. The range
// filter can only be applied after the join.
func (s *Service) readMeasurements(ctx context.Context, columns ...string) ([]record.Measurement, error) {
	rows, err := s.querier.Select(ctx, store.Query{Collection: store.Measurements, Columns: columns})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRemoteQuery, store.Measurements, err)
	}

	measurements := make([]record.Measurement, 0, len(rows))
	for _, row := range rows {
		m, err := record.MeasurementFromRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRemoteQuery, store.Measurements, err)
		}
		measurements = append(measurements, m)
	}
	return measurements, nil
}

// fail reports err for agg on the notification side channel.
func (s *Service) fail(ctx context.Context, agg aggregate, err error) {
	aggregateRuns.WithLabelValues(agg.metric, outcomeFailed).Inc()
	s.logger.Error("Aggregate failed", zap.String("aggregate", agg.metric), zap.Error(err))

	description := err.Error()
	if errors.Is(err, store.ErrTransport) {
		description += " - " + transportHint
	}
	s.notifier.Notify(ctx, notify.Notification{
		Kind:        notify.KindFetchFailed,
		Title:       fmt.Sprintf("Data fetch failed (%s)", agg.title),
		Description: description,
		Time:        s.now(),
	})
}

func (s *Service) succeed(agg aggregate, inRange int) {
	outcome := outcomeOK
	if inRange == 0 {
		outcome = outcomeNoData
	}
	aggregateRuns.WithLabelValues(agg.metric, outcome).Inc()
	aggregateInRange.WithLabelValues(agg.metric).Set(float64(inRange))
}

// lockedSource serializes access to a source that is not safe for
// concurrent use, such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src stats.Float64Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
