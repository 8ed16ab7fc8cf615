package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/stats"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// FishCount reports the tank census once per calendar week (starting
// Sunday) that has at least one frame in range. The count is the configured
// census, not a number derived from detections.
func (s *Service) FishCount(ctx context.Context, filters record.DashboardFilters) []SeriesPoint {
	census := float64(s.census)
	from, to := filters.TimestampBounds(s.loc)

	rows, err := s.querier.Select(ctx, store.Query{
		Collection: store.Frames,
		Columns:    []string{store.ColumnTimestamp},
		Range:      &store.Range{Column: store.ColumnTimestamp, From: from, To: to},
	})
	if err != nil {
		s.fail(ctx, aggFishCount, fmt.Errorf("%w: %s: %w", ErrRemoteQuery, store.Frames, err))
		return []SeriesPoint{{Date: NotAvailable, Value: census, Label: NotAvailable}}
	}

	weeks := newBucketSet(byWeek, s.loc)
	for _, row := range rows {
		ts, ok := row.GetTime(store.ColumnTimestamp)
		if !ok {
			s.logger.Warn("Skipping frame with unparseable timestamp",
				zap.String("value_snippet", row.GetFieldSnippet(store.ColumnTimestamp, 40)))
			continue
		}
		weeks.add(ts, census)
	}

	s.logger.Info("Fish count frames in range", zap.Int("frames", len(rows)), zap.Int("weeks", weeks.len()))
	s.succeed(aggFishCount, len(rows))
	if weeks.len() == 0 {
		return []SeriesPoint{{Date: NoData, Value: census, Label: NoData}}
	}

	series := make([]SeriesPoint, 0, weeks.len())
	for _, b := range weeks.sorted() {
		// Date stays ISO so points sort across years; Label is the axis text.
		series = append(series, SeriesPoint{
			Date:  b.start.Format(dayLayout),
			Value: census,
			Label: b.start.Format(weekLabel),
		})
	}
	return series
}

// Biomass estimates daily tank biomass in kg: the day's average measured
// weight times the census.
func (s *Service) Biomass(ctx context.Context, filters record.DashboardFilters) []SeriesPoint {
	placeholder := func(sentinel string) []SeriesPoint {
		return []SeriesPoint{{Date: sentinel, Value: 0, Label: sentinel}}
	}

	measurements, err := s.readMeasurements(ctx, store.ColumnWeight, store.ColumnDetectionID)
	if err != nil {
		s.fail(ctx, aggBiomass, err)
		return placeholder(NotAvailable)
	}
	s.logger.Debug("Biomass measurements fetched", zap.Int("count", len(measurements)))

	joined, err := s.joiner.Join(ctx, filters, measurements)
	if err != nil {
		s.fail(ctx, aggBiomass, err)
		return placeholder(NotAvailable)
	}
	s.logger.Info("Biomass measurements in range",
		zap.Int("count", len(joined)),
		zap.String("start_date", filters.StartDate),
		zap.String("end_date", filters.EndDate),
	)
	s.succeed(aggBiomass, len(joined))
	if len(joined) == 0 {
		return placeholder(NoData)
	}

	days := newBucketSet(byDay, s.loc)
	for _, j := range joined {
		days.add(j.FrameTime, j.WeightG)
	}

	series := make([]SeriesPoint, 0, days.len())
	for _, b := range days.sorted() {
		date := b.start.Format(dayLayout)
		series = append(series, SeriesPoint{
			Date:  date,
			Value: stats.Round(s.tankBiomassKg(stats.Mean(b.values)), 2),
			Label: date,
		})
	}
	return series
}

// KFactorSeries reports the monthly mean and population standard deviation
// of per-measurement K-factors. Measurements without a positive length have
// no K-factor and are skipped.
func (s *Service) KFactorSeries(ctx context.Context, filters record.DashboardFilters) []KFactorPoint {
	placeholder := func(sentinel string) []KFactorPoint {
		return []KFactorPoint{{Date: sentinel}}
	}

	measurements, err := s.readMeasurements(ctx, store.ColumnWeight, store.ColumnLength, store.ColumnDetectionID)
	if err != nil {
		s.fail(ctx, aggKFactor, err)
		return placeholder(NotAvailable)
	}
	s.logger.Debug("K-factor measurements fetched", zap.Int("count", len(measurements)))

	joined, err := s.joiner.Join(ctx, filters, measurements)
	if err != nil {
		s.fail(ctx, aggKFactor, err)
		return placeholder(NotAvailable)
	}

	months := newBucketSet(byMonth, s.loc)
	for _, j := range joined {
		if j.LengthCM <= 0 {
			continue
		}
		months.add(j.FrameTime, KFactor(j.WeightG, j.LengthCM))
	}
	s.logger.Info("K-factor measurements in range",
		zap.Int("count", len(joined)),
		zap.Int("months", months.len()),
	)
	s.succeed(aggKFactor, len(joined))
	if months.len() == 0 {
		return placeholder(NoData)
	}

	series := make([]KFactorPoint, 0, months.len())
	for _, b := range months.sorted() {
		sd := stats.Round(stats.StdDev(b.values), 2)
		series = append(series, KFactorPoint{
			Date:      b.start.Format(monthLayout),
			Mean:      stats.Round(stats.Mean(b.values), 2),
			SD:        sd,
			ErrorY:    sd,
			ErrorYNeg: sd,
		})
	}
	return series
}

// CurrentMetrics summarizes every in-range measurement. An empty range
// yields zero figures; a failure yields unavailable ones. The health score
// is never computed.
func (s *Service) CurrentMetrics(ctx context.Context, filters record.DashboardFilters) TankMetrics {
	metrics := TankMetrics{FishCount: s.census}

	measurements, err := s.readMeasurements(ctx,
		store.ColumnWeight, store.ColumnLength, store.ColumnHeight, store.ColumnDetectionID)
	if err != nil {
		s.fail(ctx, aggCurrentMetrics, err)
		return metrics
	}
	s.logger.Debug("Metrics measurements fetched", zap.Int("count", len(measurements)))

	inRange, err := s.joiner.FilterInRange(ctx, filters, measurements)
	if err != nil {
		s.fail(ctx, aggCurrentMetrics, err)
		return metrics
	}
	s.logger.Info("Metrics measurements in range",
		zap.Int("count", len(inRange)),
		zap.String("start_date", filters.StartDate),
		zap.String("end_date", filters.EndDate),
	)
	s.succeed(aggCurrentMetrics, len(inRange))

	if len(inRange) == 0 {
		metrics.TotalBiomass = Available(0)
		metrics.AverageWeight = Available(0)
		metrics.AverageLength = Available(0)
		metrics.AverageHeight = Available(0)
		metrics.KFactor = Available(0)
		return metrics
	}

	weights := make([]float64, len(inRange))
	lengths := make([]float64, len(inRange))
	heights := make([]float64, len(inRange))
	for i, m := range inRange {
		weights[i], lengths[i], heights[i] = m.WeightG, m.LengthCM, m.HeightCM
	}
	avgWeight := stats.Mean(weights)
	avgLength := stats.Mean(lengths)

	// The per-fish weight is read back from the unrounded tank total.
	biomassKg := s.tankBiomassKg(avgWeight)
	perFishG := biomassKg * 1000 / float64(s.census)

	metrics.TotalBiomass = Available(stats.Round(biomassKg, 2))
	metrics.AverageWeight = Available(stats.Round(perFishG, 2))
	metrics.AverageLength = Available(stats.Round(avgLength, 1))
	metrics.AverageHeight = Available(stats.Round(stats.Mean(heights), 1))
	if avgLength > 0 {
		metrics.KFactor = Available(stats.Round(KFactor(avgWeight, avgLength), 2))
	}

	s.logger.Debug("Tank metrics computed",
		zap.Float64("avg_weight_g", stats.Round(avgWeight, 2)),
		zap.Float64("biomass_kg", metrics.TotalBiomass.Value),
		zap.Float64("kfactor", metrics.KFactor.Value),
	)
	publishTankMetrics(metrics)
	return metrics
}

// tankBiomassKg extrapolates an average weight in grams to the tank in kg.
func (s *Service) tankBiomassKg(avgWeightG float64) float64 {
	return avgWeightG * float64(s.census) / 1000
}
