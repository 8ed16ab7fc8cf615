package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/config"
	"github.com/sanspareilsmyn/fishlens/internal/notify"
	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// fakeQuerier serves in-memory tables and records every query it receives.
// Range bounds are compared as text, as the sqlite backend does.
type fakeQuerier struct {
	mu      sync.Mutex
	tables  map[string][]record.Record
	failOn  map[string]error
	queries []store.Query
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		tables: make(map[string][]record.Record),
		failOn: make(map[string]error),
	}
}

func (f *fakeQuerier) Select(_ context.Context, q store.Query) ([]record.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.failOn[q.Collection]; err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(q.Keys))
	for _, k := range q.Keys {
		keys[k] = true
	}

	var out []record.Record
	for _, row := range f.tables[q.Collection] {
		if q.KeyColumn != "" {
			v, _ := row.GetString(q.KeyColumn)
			if !keys[v] {
				continue
			}
		}
		if r := q.Range; r != nil {
			v, _ := row.GetString(r.Column)
			if (r.From != "" && v < r.From) || (r.To != "" && v > r.To) {
				continue
			}
		}
		projected := make(record.Record, len(q.Columns))
		for _, c := range q.Columns {
			projected[c] = row[c]
		}
		out = append(out, projected)
	}
	return out, nil
}

func (f *fakeQuerier) queriesFor(collection string) []store.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Query
	for _, q := range f.queries {
		if q.Collection == collection {
			out = append(out, q)
		}
	}
	return out
}

func (f *fakeQuerier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = nil
}

func (f *fakeQuerier) addFrame(id string, ts time.Time) {
	f.tables[store.Frames] = append(f.tables[store.Frames], record.Record{
		store.ColumnID:        id,
		store.ColumnTimestamp: ts.UTC().Format("2006-01-02 15:04:05"),
	})
}

func (f *fakeQuerier) addDetection(id, frameID string) {
	f.tables[store.Detections] = append(f.tables[store.Detections], record.Record{
		store.ColumnID:      id,
		store.ColumnFrameID: frameID,
	})
}

func (f *fakeQuerier) addMeasurement(detectionID string, weight, length, height float64) {
	f.tables[store.Measurements] = append(f.tables[store.Measurements], record.Record{
		store.ColumnDetectionID: detectionID,
		store.ColumnWeight:      weight,
		store.ColumnLength:      length,
		store.ColumnHeight:      height,
	})
}

// addFish adds a frame at ts with one detection and its measurement.
func (f *fakeQuerier) addFish(id string, ts time.Time, weight, length, height float64) {
	f.addFrame("f-"+id, ts)
	f.addDetection("d-"+id, "f-"+id)
	f.addMeasurement("d-"+id, weight, length, height)
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func januaryFilters() record.DashboardFilters {
	return record.DashboardFilters{
		Location:   record.DefaultLocation,
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-15",
		TimePeriod: record.DefaultTimePeriod,
	}
}

// sequenceSource replays uniform values in a loop.
type sequenceSource struct {
	values []float64
	i      int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func newTestService(t *testing.T, q store.Querier, opts ...func(*config.Config)) (*Service, *notify.Collector) {
	t.Helper()
	cfg := config.Default()
	for _, opt := range opts {
		opt(cfg)
	}
	require.NoError(t, config.Validate(cfg))
	collector := &notify.Collector{}
	svc := NewService(q, cfg, collector, zap.NewNop())
	svc.now = func() time.Time { return day(2024, 1, 20, 12) }
	return svc, collector
}
