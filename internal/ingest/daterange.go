package ingest

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// minChunkDays is both the threshold below which a range is not split
	// and the smallest partition size.
	minChunkDays = 30

	// DefaultWorkers is used when the worker count is not positive.
	DefaultWorkers = 5
)

// ErrInvalidRange is returned when a range ends before it starts or a bound
// is not a YYYY-MM-DD date.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start %q: %v", ErrInvalidRange, start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end %q: %v", ErrInvalidRange, end, err)
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, r.StartDate(), r.EndDate())
	}
	return nil
}

// Days is the number of calendar days in the range, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// StartDate formats the first day as YYYY-MM-DD.
func (r DateRange) StartDate() string { return r.Start.Format(dateLayout) }

// EndDate formats the last day as YYYY-MM-DD.
func (r DateRange) EndDate() string { return r.End.Format(dateLayout) }

// ExclusiveEnd formats the day after the last day.
func (r DateRange) ExclusiveEnd() string { return r.End.AddDate(0, 0, 1).Format(dateLayout) }

func (r DateRange) String() string {
	return r.StartDate() + ".." + r.EndDate()
}

// SplitDateRange cuts r into consecutive, non-overlapping inclusive
// sub-ranges. Ranges of at most 30 days are returned whole; longer ranges use
// chunks of max(30, days/workers) days with the last chunk truncated to r.End.
func SplitDateRange(r DateRange, workers int) []DateRange {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	total := r.Days()
	if total <= minChunkDays {
		return []DateRange{r}
	}

	chunkDays := max(minChunkDays, total/workers)
	chunks := make([]DateRange, 0, total/chunkDays+1)
	for cur := r.Start; !cur.After(r.End); {
		end := cur.AddDate(0, 0, chunkDays-1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, DateRange{Start: cur, End: end})
		cur = end.AddDate(0, 0, 1)
	}
	return chunks
}
