package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// Joined is a measurement together with the capture time of its frame.
type Joined struct {
	record.Measurement
	FrameTime time.Time
}

// Joiner resolves measurements to their frames across Detections and
// Frames, keeping only those whose frame lies in the filter's date range.
// Only Frames carry a timestamp, so the range is pushed down to the frame
// fetch and membership is propagated back up by id. Filter dates are
// calendar days in loc.
type Joiner struct {
	fetcher *BatchFetcher
	loc     *time.Location
	logger  *zap.Logger
}

func NewJoiner(fetcher *BatchFetcher, loc *time.Location, logger *zap.Logger) *Joiner {
	if loc == nil {
		loc = time.UTC
	}
	return &Joiner{fetcher: fetcher, loc: loc, logger: logger}
}

// Join returns the in-range measurements paired with their frame time.
// Measurements whose detection or frame cannot be resolved are dropped.
func (j *Joiner) Join(ctx context.Context, filters record.DashboardFilters, measurements []record.Measurement) ([]Joined, error) {
	frames, detections, err := j.resolve(ctx, filters, measurements, true)
	if err != nil {
		return nil, err
	}

	byDetection := validDetections(detections, frames)
	joined := make([]Joined, 0, len(measurements))
	for _, m := range measurements {
		frame, ok := byDetection[m.DetectionID]
		if !ok {
			continue
		}
		joined = append(joined, Joined{Measurement: m, FrameTime: frame.Timestamp})
	}
	return joined, nil
}

// FilterInRange is Join without frame times: it only needs frame ids, so
// the frame fetch projects the id column alone.
func (j *Joiner) FilterInRange(ctx context.Context, filters record.DashboardFilters, measurements []record.Measurement) ([]record.Measurement, error) {
	frames, detections, err := j.resolve(ctx, filters, measurements, false)
	if err != nil {
		return nil, err
	}

	byDetection := validDetections(detections, frames)
	filtered := make([]record.Measurement, 0, len(measurements))
	for _, m := range measurements {
		if _, ok := byDetection[m.DetectionID]; ok {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// resolve runs the two hops in sequence. Detections are fully fetched
// before frames are requested.
func (j *Joiner) resolve(ctx context.Context, filters record.DashboardFilters, measurements []record.Measurement, withTimestamps bool) (map[string]record.Frame, []record.Detection, error) {
	if len(measurements) == 0 {
		return map[string]record.Frame{}, nil, nil
	}

	detections, err := j.fetchDetections(ctx, detectionIDs(measurements))
	if err != nil {
		return nil, nil, err
	}
	j.logger.Debug("Detections fetched", zap.Int("count", len(detections)))

	frames, err := j.fetchFramesInRange(ctx, filters, frameIDs(detections), withTimestamps)
	if err != nil {
		return nil, nil, err
	}
	from, to := filters.TimestampBounds(j.loc)
	j.logger.Debug("Frames fetched in range",
		zap.Int("count", len(frames)),
		zap.String("from", from),
		zap.String("to", to),
	)
	return frames, detections, nil
}

func (j *Joiner) fetchDetections(ctx context.Context, ids []string) ([]record.Detection, error) {
	rows, err := j.fetcher.Fetch(ctx, store.Detections,
		[]string{store.ColumnID, store.ColumnFrameID}, store.ColumnID, ids, nil)
	if err != nil {
		return nil, err
	}

	detections := make([]record.Detection, 0, len(rows))
	for _, row := range rows {
		d, err := record.DetectionFromRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRemoteQuery, store.Detections, err)
		}
		detections = append(detections, d)
	}
	return detections, nil
}

// fetchFramesInRange returns the frames among ids whose timestamp lies in
// the filter range, keyed by frame id.
func (j *Joiner) fetchFramesInRange(ctx context.Context, filters record.DashboardFilters, ids []string, withTimestamps bool) (map[string]record.Frame, error) {
	columns := []string{store.ColumnID}
	if withTimestamps {
		columns = append(columns, store.ColumnTimestamp)
	}
	from, to := filters.TimestampBounds(j.loc)
	rows, err := j.fetcher.Fetch(ctx, store.Frames, columns, store.ColumnID, ids,
		&store.Range{Column: store.ColumnTimestamp, From: from, To: to})
	if err != nil {
		return nil, err
	}

	frames := make(map[string]record.Frame, len(rows))
	for _, row := range rows {
		f, err := record.FrameFromRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRemoteQuery, store.Frames, err)
		}
		frames[f.ID] = f
	}
	return frames, nil
}

func detectionIDs(measurements []record.Measurement) []string {
	ids := make([]string, 0, len(measurements))
	for _, m := range measurements {
		ids = append(ids, m.DetectionID)
	}
	return ids
}

func frameIDs(detections []record.Detection) []string {
	ids := make([]string, 0, len(detections))
	for _, d := range detections {
		ids = append(ids, d.FrameID)
	}
	return ids
}

// validDetections maps each detection whose frame is in frames to that frame.
func validDetections(detections []record.Detection, frames map[string]record.Frame) map[string]record.Frame {
	valid := make(map[string]record.Frame, len(detections))
	for _, d := range detections {
		if f, ok := frames[d.FrameID]; ok {
			valid[d.ID] = f
		}
	}
	return valid
}
