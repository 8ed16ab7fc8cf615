package pipeline

import (
	"sort"
	"time"
)

// granularity is the calendar unit a series is bucketed by.
type granularity int

const (
	byDay granularity = iota
	byWeek
	byMonth
)

const (
	dayLayout   = "2006-01-02"
	weekLabel   = "Jan 2"
	monthLayout = "Jan 2006"
)

// bucketStart truncates t to the start of its day, week (Sunday) or month
// in loc.
func bucketStart(t time.Time, g granularity, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch g {
	case byWeek:
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, loc)
	case byMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// bucket holds the values observed in one calendar window.
type bucket struct {
	start  time.Time
	values []float64
}

// bucketSet groups values by calendar window.
type bucketSet struct {
	granularity granularity
	loc         *time.Location
	buckets     map[time.Time]*bucket
}

func newBucketSet(g granularity, loc *time.Location) *bucketSet {
	if loc == nil {
		loc = time.UTC
	}
	return &bucketSet{
		granularity: g,
		loc:         loc,
		buckets:     make(map[time.Time]*bucket),
	}
}

// add records v in the window containing t.
func (s *bucketSet) add(t time.Time, v float64) {
	start := bucketStart(t, s.granularity, s.loc)
	b, exists := s.buckets[start]
	if !exists {
		b = &bucket{start: start}
		s.buckets[start] = b
	}
	b.values = append(b.values, v)
}

func (s *bucketSet) len() int { return len(s.buckets) }

// sorted returns the buckets in ascending order of window start.
func (s *bucketSet) sorted() []*bucket {
	out := make([]*bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}
