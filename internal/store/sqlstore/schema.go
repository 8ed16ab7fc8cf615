package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// Migrate creates the five collections when they do not exist yet. Managed
// deployments already carry this schema; it exists for local runs and tests.
func (s *Store) Migrate(ctx context.Context) error {
	tsType := "TEXT"
	if s.dialect == "postgres" {
		tsType = "TIMESTAMPTZ"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS "Projects" (
			"id" TEXT PRIMARY KEY,
			"name" TEXT NOT NULL,
			"created_at" ` + tsType + `
		)`,
		`CREATE TABLE IF NOT EXISTS "Devices" (
			"id" TEXT PRIMARY KEY,
			"name" TEXT NOT NULL,
			"project_id" TEXT REFERENCES "Projects"("id"),
			"created_at" ` + tsType + `
		)`,
		`CREATE TABLE IF NOT EXISTS "Frames" (
			"id" TEXT PRIMARY KEY,
			"device_id" TEXT,
			"project_id" TEXT,
			"image_url" TEXT,
			"timestamp" ` + tsType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS "idx_frames_timestamp" ON "Frames"("timestamp")`,
		`CREATE TABLE IF NOT EXISTS "Detections" (
			"id" TEXT PRIMARY KEY,
			"frame_id" TEXT NOT NULL,
			"species" TEXT,
			"confidence" REAL
		)`,
		`CREATE TABLE IF NOT EXISTS "Measurements" (
			"id" TEXT PRIMARY KEY,
			"detection_id" TEXT NOT NULL,
			"weight_g" REAL NOT NULL,
			"length_cm" REAL NOT NULL,
			"height_cm" REAL NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}
	return nil
}

// InsertFrames writes frames in one statement. Frames without an id are rejected by the schema.
func (s *Store) InsertFrames(ctx context.Context, frames []record.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	rows := make([]interface{}, len(frames))
	for i, f := range frames {
		rows[i] = goqu.Record{
			store.ColumnID:        f.ID,
			store.ColumnTimestamp: s.timestampValue(f.Timestamp),
		}
	}
	return s.insert(ctx, store.Frames, rows)
}

func (s *Store) InsertDetections(ctx context.Context, detections []record.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	rows := make([]interface{}, len(detections))
	for i, d := range detections {
		rows[i] = goqu.Record{
			store.ColumnID:      d.ID,
			store.ColumnFrameID: d.FrameID,
		}
	}
	return s.insert(ctx, store.Detections, rows)
}

// InsertMeasurements writes measurements keyed by the given ids; ids and
// measurements are matched by position.
func (s *Store) InsertMeasurements(ctx context.Context, ids []string, measurements []record.Measurement) error {
	if len(ids) != len(measurements) {
		return fmt.Errorf("insert measurements: %d ids for %d rows", len(ids), len(measurements))
	}
	if len(measurements) == 0 {
		return nil
	}
	rows := make([]interface{}, len(measurements))
	for i, m := range measurements {
		rows[i] = goqu.Record{
			store.ColumnID:          ids[i],
			store.ColumnDetectionID: m.DetectionID,
			store.ColumnWeight:      m.WeightG,
			store.ColumnLength:      m.LengthCM,
			store.ColumnHeight:      m.HeightCM,
		}
	}
	return s.insert(ctx, store.Measurements, rows)
}

func (s *Store) insert(ctx context.Context, table string, rows []interface{}) error {
	query, args, err := s.goquDb.Insert(goqu.T(table)).Rows(rows...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}
