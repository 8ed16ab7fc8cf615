package pipeline

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/stats"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// Shape of the synthetic weight and length populations, in g and cm.
const (
	weightMeanG = 80.0
	weightSDG   = 10.0
	weightMinG  = 50.0
	weightMaxG  = 110.0
	weightBinG  = 10.0

	lengthMeanCM = 24.0
	lengthSDCM   = 5.0
	lengthMinCM  = 10.0
	lengthMaxCM  = 38.0
	lengthBinCM  = 2.0

	densityPoints = 60
)

// WeightSamples returns synthetic fish weights in kg when the range holds
// at least one measurement, and [0] otherwise. The samples are drawn from
// N(80 g, 10 g) restricted to [50, 110] g and rounded to 0.1 g; the
// measured weights only gate whether samples are produced.
func (s *Service) WeightSamples(ctx context.Context, filters record.DashboardFilters) []float64 {
	grams, ok := s.weightSamplesG(ctx, filters)
	if !ok {
		return []float64{0}
	}
	kg := make([]float64, len(grams))
	for i, g := range grams {
		kg[i] = g / 1000
	}
	return kg
}

// weightSamplesG reports false when there is nothing to sample, either
// because the range is empty or the lookup failed.
func (s *Service) weightSamplesG(ctx context.Context, filters record.DashboardFilters) ([]float64, bool) {
	measurements, err := s.readMeasurements(ctx, store.ColumnWeight, store.ColumnDetectionID)
	if err != nil {
		s.fail(ctx, aggWeights, err)
		return nil, false
	}
	s.logger.Debug("Weight measurements fetched", zap.Int("count", len(measurements)))

	inRange, err := s.joiner.FilterInRange(ctx, filters, measurements)
	if err != nil {
		s.fail(ctx, aggWeights, err)
		return nil, false
	}
	s.logger.Info("Weight measurements in range",
		zap.Int("count", len(inRange)),
		zap.String("start_date", filters.StartDate),
		zap.String("end_date", filters.EndDate),
	)
	s.succeed(aggWeights, len(inRange))
	if len(inRange) == 0 {
		return nil, false
	}

	grams := make([]float64, 0, s.weightSamples)
	for len(grams) < s.weightSamples {
		w := stats.SampleNormal(s.rng, weightMeanG, weightSDG)
		if w < weightMinG || w > weightMaxG {
			continue
		}
		grams = append(grams, stats.Round(w, 1))
	}

	s.logger.Debug("Generated weight samples",
		zap.Int("count", len(grams)),
		zap.Float64("mean_g", stats.Round(stats.Mean(grams), 1)),
	)
	return grams, true
}

// WeightDistribution bins the weight samples, rounded to the nearest 10 g,
// into 10 g bins over [50, 110] with a fitted density overlay.
func (s *Service) WeightDistribution(ctx context.Context, filters record.DashboardFilters) Distribution {
	kg := s.WeightSamples(ctx, filters)
	grams := make([]float64, len(kg))
	for i, w := range kg {
		grams[i] = math.Round(w*1000/10) * 10
	}

	dist := distribution(grams, weightMinG, weightMaxG, weightBinG, "g")
	dist.Density = stats.DensityCurve(grams, weightMinG, weightMaxG, densityPoints)
	return dist
}

// LengthDistribution draws one synthetic length per weight sample from
// N(24 cm, 5 cm), clamped to [10, 38] and rounded to the cm, and bins them
// in 2 cm bins.
func (s *Service) LengthDistribution(ctx context.Context, filters record.DashboardFilters) Distribution {
	kg := s.WeightSamples(ctx, filters)
	lengths := make([]float64, len(kg))
	for i := range lengths {
		l := stats.SampleNormal(s.rng, lengthMeanCM, lengthSDCM)
		lengths[i] = math.Round(math.Min(lengthMaxCM, math.Max(lengthMinCM, l)))
	}
	return distribution(lengths, lengthMinCM, lengthMaxCM, lengthBinCM, "cm")
}

func distribution(xs []float64, min, max, width float64, unit string) Distribution {
	bins := stats.Histogram(xs, min, max, width)
	labeled := make([]LabeledBin, len(bins))
	for i, b := range bins {
		labeled[i] = LabeledBin{
			Bin:   b,
			Range: fmt.Sprintf("%d-%d%s", int(math.Round(b.Start)), int(math.Round(b.End)), unit),
		}
	}

	summary := stats.Summarize(xs)
	dist := Distribution{Bins: labeled, Summary: summary}
	if len(xs) > 0 {
		dist.MeanBin = stats.FindBin(bins, stats.Mean(xs))
		dist.Q1Bin = stats.FindBin(bins, summary.Q1)
		dist.Q3Bin = stats.FindBin(bins, summary.Q3)
	}
	return dist
}
