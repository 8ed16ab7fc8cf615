package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sanspareilsmyn/fishlens/internal/stats"
)

// Sentinels shown in place of a value. NotAvailable means the computation
// failed; NoData means it succeeded over an empty range.
const (
	NotAvailable = "#N/A"
	NoData       = "No Data"
)

// SeriesPoint is one point of a fish-count or biomass series.
type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// KFactorPoint is the monthly K-factor mean with a symmetric error bar.
type KFactorPoint struct {
	Date      string  `json:"date"`
	Mean      float64 `json:"mean"`
	SD        float64 `json:"sd"`
	ErrorY    float64 `json:"errorY"`
	ErrorYNeg float64 `json:"errorYNeg"`
}

// Figure is a summary number that may be unavailable. Unavailable figures
// encode as "#N/A".
type Figure struct {
	Value float64
	Valid bool
}

func Available(v float64) Figure { return Figure{Value: v, Valid: true} }

func (f Figure) String() string {
	if !f.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(f.Value)
}

func (f *Figure) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = Figure{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != NotAvailable {
			return fmt.Errorf("unexpected figure %q", s)
		}
		*f = Figure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Available(v)
	return nil
}

// TankMetrics is the tank-level summary card.
type TankMetrics struct {
	FishCount     int    `json:"fishCount"`
	TotalBiomass  Figure `json:"totalBiomass"`  // kg
	AverageWeight Figure `json:"averageWeight"` // g per fish
	AverageLength Figure `json:"averageLength"` // cm
	AverageHeight Figure `json:"averageHeight"` // cm
	KFactor       Figure `json:"kFactor"`
	HealthScore   Figure `json:"healthScore"`
}

// LabeledBin is a histogram bin with its axis label, e.g. "50-60g".
type LabeledBin struct {
	stats.Bin
	Range string `json:"range"`
}

// Distribution backs the weight and length histogram cards.
type Distribution struct {
	Bins    []LabeledBin         `json:"bins"`
	Summary stats.Summary        `json:"summary"`
	MeanBin int                  `json:"meanBin"`
	Q1Bin   int                  `json:"q1Bin"`
	Q3Bin   int                  `json:"q3Bin"`
	Density []stats.DensityPoint `json:"density,omitempty"`
}

// KFactor is Fulton's condition factor, weight / length^3 scaled by 100.
func KFactor(weightG, lengthCM float64) float64 {
	return weightG / (lengthCM * lengthCM * lengthCM) * 100
}

// Condition bands around the nominal K-factor of 1.0.
const (
	ConditionBelowIdeal = "below ideal"
	ConditionIdeal      = "ideal"
	ConditionAboveIdeal = "above ideal"
)

func Condition(k float64) string {
	switch {
	case k > 1.05:
		return ConditionAboveIdeal
	case k < 0.95:
		return ConditionBelowIdeal
	default:
		return ConditionIdeal
	}
}
