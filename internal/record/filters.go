package record

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// TimestampLayout is the UTC text form of frame timestamps in range
	// predicates. Text in this layout sorts chronologically.
	TimestampLayout = "2006-01-02 15:04:05"

	// endOfDay is appended to EndDate so the upper bound covers the whole day.
	endOfDay = " 23:59:59"

	DefaultLocation   = "all-locations"
	DefaultTimePeriod = "18d"
	defaultPeriodDays = 18
)

// DashboardFilters is the filter state handed over by the dashboard.
// Location and TimePeriod are carried along but do not narrow the data:
// the deployment monitors a single tank and the period is a display hint.
type DashboardFilters struct {
	Location   string `json:"location" query:"location"`
	StartDate  string `json:"startDate" query:"startDate"`
	EndDate    string `json:"endDate" query:"endDate"`
	TimePeriod string `json:"timePeriod" query:"timePeriod"`
}

// DefaultFilters covers the 18 days ending on the day of now.
func DefaultFilters(now time.Time) DashboardFilters {
	end := now.Format(DateLayout)
	start := now.AddDate(0, 0, -(defaultPeriodDays - 1)).Format(DateLayout)
	return DashboardFilters{
		Location:   DefaultLocation,
		StartDate:  start,
		EndDate:    end,
		TimePeriod: DefaultTimePeriod,
	}
}

func (f DashboardFilters) Validate() error {
	start, err := time.Parse(DateLayout, f.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate %q", ErrInvalidDate, f.StartDate)
	}
	end, err := time.Parse(DateLayout, f.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate %q", ErrInvalidDate, f.EndDate)
	}
	if start.After(end) {
		return fmt.Errorf("%w: %s > %s", ErrInvertedDateRange, f.StartDate, f.EndDate)
	}
	return nil
}

// TimestampBounds returns the inclusive bounds pushed down to frame queries.
// The dates are calendar days in loc: the range starts at midnight on
// StartDate and ends at 23:59:59 on EndDate, both rendered as UTC text. In
// UTC (or a nil loc) that is the start date as is and the end date at
// 23:59:59.
func (f DashboardFilters) TimestampBounds(loc *time.Location) (from, to string) {
	if loc == nil || loc == time.UTC {
		return f.StartDate, f.EndDate + endOfDay
	}
	start, err := time.ParseInLocation(DateLayout, f.StartDate, loc)
	if err != nil {
		return f.StartDate, f.EndDate + endOfDay
	}
	endDay, err := time.ParseInLocation(DateLayout, f.EndDate, loc)
	if err != nil {
		return f.StartDate, f.EndDate + endOfDay
	}
	end := endDay.AddDate(0, 0, 1).Add(-time.Second)
	return start.UTC().Format(TimestampLayout), end.UTC().Format(TimestampLayout)
}
