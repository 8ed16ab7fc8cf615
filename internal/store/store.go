// Package store describes the relational query capability the pipeline reads
// from. Backends live in subpackages.
package store

import (
	"context"

	"github.com/sanspareilsmyn/fishlens/internal/record"
)

// Collection names as they exist in the backing schema.
const (
	Measurements = "Measurements"
	Detections   = "Detections"
	Frames       = "Frames"
	Devices      = "Devices"
	Projects     = "Projects"
)

const (
	ColumnID          = "id"
	ColumnFrameID     = "frame_id"
	ColumnDetectionID = "detection_id"
	ColumnTimestamp   = "timestamp"
	ColumnWeight      = "weight_g"
	ColumnLength      = "length_cm"
	ColumnHeight      = "height_cm"
)

// Range is an inclusive bound on a column, compared as the backend compares
// the column against text. Empty From or To leaves that side open.
type Range struct {
	Column string
	From   string
	To     string
}

// Query is "select Columns from Collection where KeyColumn in (Keys) and Range".
// An empty KeyColumn reads the whole collection; a nil Range adds no predicate.
type Query struct {
	Collection string
	Columns    []string
	KeyColumn  string
	Keys       []string
	Range      *Range
}

// Querier executes a Query against a backend. Implementations must be safe
// for concurrent use.
type Querier interface {
	Select(ctx context.Context, q Query) ([]record.Record, error)
}

// Validate rejects queries a backend cannot express.
func (q Query) Validate() error {
	if !knownCollection(q.Collection) {
		return ErrUnknownCollection
	}
	if len(q.Columns) == 0 {
		return ErrNoColumns
	}
	if q.KeyColumn != "" && len(q.Keys) == 0 {
		return ErrEmptyKeySet
	}
	if q.Range != nil && q.Range.Column == "" {
		return ErrRangeWithoutColumn
	}
	return nil
}

func knownCollection(name string) bool {
	switch name {
	case Measurements, Detections, Frames, Devices, Projects:
		return true
	}
	return false
}
