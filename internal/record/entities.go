package record

import (
	"fmt"
	"time"
)

// Measurement is a size estimate produced by the detection process for one
// detected fish. Columns that were not projected by the query stay zero.
type Measurement struct {
	WeightG     float64 `json:"weight_g"`
	LengthCM    float64 `json:"length_cm"`
	HeightCM    float64 `json:"height_cm"`
	DetectionID string  `json:"detection_id"`
}

// Detection links a measurement to the frame it was extracted from.
type Detection struct {
	ID      string `json:"id"`
	FrameID string `json:"frame_id"`
}

// Frame is a captured image and the temporal anchor for everything derived from it.
type Frame struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func MeasurementFromRecord(r Record) (Measurement, error) {
	detectionID, ok := r.GetString("detection_id")
	if !ok {
		return Measurement{}, fmt.Errorf("%w: detection_id", ErrMissingColumn)
	}
	m := Measurement{DetectionID: detectionID}
	m.WeightG, _ = r.GetFloat64("weight_g")
	m.LengthCM, _ = r.GetFloat64("length_cm")
	m.HeightCM, _ = r.GetFloat64("height_cm")
	return m, nil
}

func DetectionFromRecord(r Record) (Detection, error) {
	id, ok := r.GetString("id")
	if !ok {
		return Detection{}, fmt.Errorf("%w: id", ErrMissingColumn)
	}
	frameID, ok := r.GetString("frame_id")
	if !ok {
		return Detection{}, fmt.Errorf("%w: frame_id", ErrMissingColumn)
	}
	return Detection{ID: id, FrameID: frameID}, nil
}

// FrameFromRecord decodes a frame row. The timestamp is optional because
// range-only lookups project just the id.
func FrameFromRecord(r Record) (Frame, error) {
	id, ok := r.GetString("id")
	if !ok {
		return Frame{}, fmt.Errorf("%w: id", ErrMissingColumn)
	}
	f := Frame{ID: id}
	if r.HasNonNull("timestamp") {
		ts, ok := r.GetTime("timestamp")
		if !ok {
			return Frame{}, fmt.Errorf("unparseable frame timestamp %q", r.GetFieldSnippet("timestamp", 40))
		}
		f.Timestamp = ts
	}
	return f, nil
}
