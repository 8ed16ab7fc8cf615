package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/fishlens/internal/stats"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

func sampleService(t *testing.T) (*Service, *fakeQuerier) {
	t.Helper()
	q := newFakeQuerier()
	q.addFish("a", day(2024, 1, 2, 8), 80, 20, 10)
	svc, _ := newTestService(t, q)
	return svc.WithRandSource(rand.New(rand.NewPCG(1, 2))), q
}

func TestWeightSamples_SyntheticDistribution(t *testing.T) {
	svc, _ := sampleService(t)

	kg := svc.WeightSamples(context.Background(), januaryFilters())
	require.Len(t, kg, 1000)

	grams := make([]float64, len(kg))
	for i, w := range kg {
		assert.GreaterOrEqual(t, w, 0.05)
		assert.LessOrEqual(t, w, 0.11)
		grams[i] = w * 1000
		assert.InDelta(t, stats.Round(grams[i], 1), grams[i], 1e-9, "grams carry one decimal")
	}
	assert.InDelta(t, 80, stats.Mean(grams), 1.5)
}

func TestWeightSamples_RejectsOutOfRangeDraws(t *testing.T) {
	svc, _ := sampleService(t)
	// u=0.5, v=0.5 gives mean - 1.1774*sd = 68.2 g; u=0.01 draws land far below 50 g.
	src := &sequenceSource{values: []float64{0.01, 0.5, 0.5, 0.5}}
	svc = svc.WithRandSource(src)
	svc.weightSamples = 3

	kg := svc.WeightSamples(context.Background(), januaryFilters())
	require.Len(t, kg, 3)
	for _, w := range kg {
		assert.InDelta(t, 0.0682, w, 1e-9)
	}
}

func TestWeightSamples_EmptyAndFailure(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())
	assert.Equal(t, []float64{0}, svc.WeightSamples(context.Background(), januaryFilters()))

	q := newFakeQuerier()
	q.addFish("a", day(2024, 1, 2, 8), 80, 20, 10)
	q.failOn[store.Measurements] = errors.New("boom")
	svc, collector := newTestService(t, q)
	assert.Equal(t, []float64{0}, svc.WeightSamples(context.Background(), januaryFilters()))
	require.Len(t, collector.Notifications(), 1)
	assert.Equal(t, "Data fetch failed (Weights)", collector.Notifications()[0].Title)
}

func TestWeightDistribution(t *testing.T) {
	svc, _ := sampleService(t)

	dist := svc.WeightDistribution(context.Background(), januaryFilters())
	require.Len(t, dist.Bins, 6)
	assert.Equal(t, "50-60g", dist.Bins[0].Range)
	assert.Equal(t, "100-110g", dist.Bins[5].Range)

	total := 0
	for _, b := range dist.Bins {
		total += b.Count
	}
	assert.Equal(t, 1000, total)

	for _, v := range []float64{dist.Summary.Min, dist.Summary.Max, dist.Summary.Q1, dist.Summary.Q3} {
		assert.Zero(t, int(v)%10, "weights are rounded to the nearest 10 g")
	}
	assert.GreaterOrEqual(t, dist.MeanBin, 2)
	assert.LessOrEqual(t, dist.MeanBin, 3)
	require.Len(t, dist.Density, 60)
	assert.Equal(t, 50.0, dist.Density[0].X)
}

func TestLengthDistribution(t *testing.T) {
	svc, _ := sampleService(t)

	dist := svc.LengthDistribution(context.Background(), januaryFilters())
	require.Len(t, dist.Bins, 14)
	assert.Equal(t, "10-12cm", dist.Bins[0].Range)
	assert.Equal(t, "36-38cm", dist.Bins[13].Range)

	total := 0
	for _, b := range dist.Bins {
		total += b.Count
	}
	assert.Equal(t, 1000, total, "one length per weight sample, all clamped into range")
	assert.GreaterOrEqual(t, dist.Summary.Min, 10.0)
	assert.LessOrEqual(t, dist.Summary.Max, 38.0)
	assert.GreaterOrEqual(t, dist.Q1Bin, 0)
	assert.LessOrEqual(t, dist.Q1Bin, dist.MeanBin)
	assert.LessOrEqual(t, dist.MeanBin, dist.Q3Bin)
	assert.Empty(t, dist.Density)
}

func TestDistribution_EmptyRange(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	dist := svc.WeightDistribution(context.Background(), januaryFilters())
	for _, b := range dist.Bins {
		assert.Zero(t, b.Count)
	}
	assert.Equal(t, 0.0, dist.Summary.Max)
}
