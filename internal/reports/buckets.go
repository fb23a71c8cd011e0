package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// Bucket is one calendar period of a sales series.
type Bucket struct {
	Key    string          `json:"key"`
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Sales  decimal.Decimal `json:"sales"`
	Units  int             `json:"units"`
	Orders int             `json:"orders"`
}

// periodStart truncates t to the start of its bucket in t's location. Weeks
// start on Monday.
func periodStart(t time.Time, g enums.ReportGranularity) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch g {
	case enums.ReportGranularityMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case enums.ReportGranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return day
	}
}

func nextStart(start time.Time, g enums.ReportGranularity) time.Time {
	switch g {
	case enums.ReportGranularityMonth:
		return start.AddDate(0, 1, 0)
	case enums.ReportGranularityWeek:
		return start.AddDate(0, 0, 7)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// bucketKey renders YYYY-MM-DD, YYYY-MM or YYYY-MM-Wn where n is the start
// day of the week divided by seven, rounded up.
func bucketKey(start time.Time, g enums.ReportGranularity) string {
	switch g {
	case enums.ReportGranularityMonth:
		return start.Format("2006-01")
	case enums.ReportGranularityWeek:
		return fmt.Sprintf("%s-W%d", start.Format("2006-01"), (start.Day()+6)/7)
	default:
		return start.Format("2006-01-02")
	}
}

// series is a zero-filled run of buckets, oldest first, ending with the
// period containing now.
type series struct {
	buckets []Bucket
	// orders counted per bucket, so one order is never counted twice
	seen []map[string]struct{}
}

func newSeries(now time.Time, g enums.ReportGranularity, count int) *series {
	current := periodStart(now, g)
	starts := make([]time.Time, count)
	starts[count-1] = current
	for i := count - 2; i >= 0; i-- {
		starts[i] = periodStart(starts[i+1].AddDate(0, 0, -1), g)
	}

	s := &series{buckets: make([]Bucket, count), seen: make([]map[string]struct{}, count)}
	for i, start := range starts {
		s.buckets[i] = Bucket{
			Key:   bucketKey(start, g),
			Start: start,
			End:   nextStart(start, g),
			Sales: decimal.Zero,
		}
		s.seen[i] = map[string]struct{}{}
	}
	return s
}

func (s *series) start() time.Time {
	return s.buckets[0].Start
}

func (s *series) index(t time.Time) int {
	i := sort.Search(len(s.buckets), func(i int) bool {
		return s.buckets[i].End.After(t)
	})
	if i == len(s.buckets) || t.Before(s.buckets[i].Start) {
		return -1
	}
	return i
}

// add accumulates a contribution at t. Contributions outside the window are
// ignored.
func (s *series) add(t time.Time, orderKey string, amount decimal.Decimal, units int) {
	i := s.index(t)
	if i < 0 {
		return
	}
	b := &s.buckets[i]
	b.Sales = b.Sales.Add(amount)
	b.Units += units
	if _, ok := s.seen[i][orderKey]; !ok {
		s.seen[i][orderKey] = struct{}{}
		b.Orders++
	}
}

// result rounds sales once, after every contribution was summed.
func (s *series) result() []Bucket {
	out := make([]Bucket, len(s.buckets))
	for i, b := range s.buckets {
		b.Sales = b.Sales.Round(2)
		out[i] = b
	}
	return out
}
