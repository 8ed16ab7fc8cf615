package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

func newTestJoiner(q store.Querier) *Joiner {
	return NewJoiner(NewBatchFetcher(q, 200, 1, zap.NewNop()), time.UTC, zap.NewNop())
}

func threeFrameDataset() (*fakeQuerier, []record.Measurement) {
	q := newFakeQuerier()
	q.addFrame("f1", day(2024, 1, 1, 8))
	q.addFrame("f2", day(2024, 1, 10, 8))
	q.addFrame("f3", day(2024, 2, 1, 8))
	q.addDetection("d1", "f1")
	q.addDetection("d2", "f2")
	q.addDetection("d3", "f3")

	measurements := []record.Measurement{
		{DetectionID: "d1", WeightG: 80, LengthCM: 20},
		{DetectionID: "d2", WeightG: 85, LengthCM: 21},
		{DetectionID: "d3", WeightG: 90, LengthCM: 22},
		{DetectionID: "d2", WeightG: 86, LengthCM: 21},
	}
	return q, measurements
}

func TestJoin_KeepsOnlyMeasurementsWithFramesInRange(t *testing.T) {
	q, measurements := threeFrameDataset()

	joined, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), measurements)
	require.NoError(t, err)
	require.Len(t, joined, 3)

	assert.Equal(t, "d1", joined[0].DetectionID)
	assert.Equal(t, day(2024, 1, 1, 8), joined[0].FrameTime)
	assert.Equal(t, "d2", joined[1].DetectionID)
	assert.Equal(t, day(2024, 1, 10, 8), joined[1].FrameTime)
	assert.Equal(t, 86.0, joined[2].WeightG)

	detections := q.queriesFor(store.Detections)
	require.Len(t, detections, 1)
	assert.Equal(t, []string{"d1", "d2", "d3"}, detections[0].Keys)

	frames := q.queriesFor(store.Frames)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"f1", "f2", "f3"}, frames[0].Keys)
	assert.Equal(t, []string{store.ColumnID, store.ColumnTimestamp}, frames[0].Columns)
	assert.Equal(t, &store.Range{Column: store.ColumnTimestamp, From: "2024-01-01", To: "2024-01-15 23:59:59"}, frames[0].Range)
}

func TestJoin_EndDateIsInclusiveToEndOfDay(t *testing.T) {
	q := newFakeQuerier()
	q.addFish("late", day(2024, 1, 15, 23), 80, 20, 10)
	q.addFish("next", day(2024, 1, 16, 0), 80, 20, 10)
	measurements := []record.Measurement{{DetectionID: "d-late"}, {DetectionID: "d-next"}}

	joined, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), measurements)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "d-late", joined[0].DetectionID)
}

func TestFilterInRange_ProjectsFrameIDOnly(t *testing.T) {
	q, measurements := threeFrameDataset()

	filtered, err := newTestJoiner(q).FilterInRange(context.Background(), januaryFilters(), measurements)
	require.NoError(t, err)
	assert.Equal(t, []record.Measurement{measurements[0], measurements[1], measurements[3]}, filtered)

	frames := q.queriesFor(store.Frames)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{store.ColumnID}, frames[0].Columns)
}

func TestJoin_DropsOrphans(t *testing.T) {
	q := newFakeQuerier()
	q.addFrame("f1", day(2024, 1, 5, 8))
	q.addDetection("d1", "f1")
	q.addDetection("d2", "missing-frame")
	measurements := []record.Measurement{
		{DetectionID: "d1"},
		{DetectionID: "d2"},
		{DetectionID: "missing-detection"},
	}

	joined, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), measurements)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "d1", joined[0].DetectionID)
}

func TestJoin_EmptyInputQueriesNothing(t *testing.T) {
	q := newFakeQuerier()

	joined, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), nil)
	require.NoError(t, err)
	assert.Empty(t, joined)
	assert.Empty(t, q.queries)
}

func TestJoin_NoDetectionsSkipsFrameQuery(t *testing.T) {
	q := newFakeQuerier()
	measurements := []record.Measurement{{DetectionID: "unknown"}}

	joined, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), measurements)
	require.NoError(t, err)
	assert.Empty(t, joined)
	assert.Len(t, q.queriesFor(store.Detections), 1)
	assert.Empty(t, q.queriesFor(store.Frames))
}

func TestJoin_FrameFailurePropagates(t *testing.T) {
	q, measurements := threeFrameDataset()
	q.failOn[store.Frames] = errors.New("boom")

	_, err := newTestJoiner(q).Join(context.Background(), januaryFilters(), measurements)
	assert.ErrorIs(t, err, ErrRemoteQuery)
	assert.Contains(t, err.Error(), store.Frames)
}

func TestValidDetections(t *testing.T) {
	frames := map[string]record.Frame{"f1": {ID: "f1"}}
	detections := []record.Detection{{ID: "d1", FrameID: "f1"}, {ID: "d2", FrameID: "f2"}}

	valid := validDetections(detections, frames)
	assert.Len(t, valid, 1)
	assert.Equal(t, "f1", valid["d1"].ID)
}
