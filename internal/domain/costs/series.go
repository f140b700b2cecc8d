package costs

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/cache"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// CostFunc computes one day's cost result from scratch.
type CostFunc func(day types.Day) (*DailyCostResult, error)

// SeriesMode selects how a CostSeries obtains results.
type SeriesMode string

const (
	// SeriesModeParameterised computes results on demand. Before the
	// post-aggregation flag is set every read recomputes, tolerating
	// upstream consumption data that is still changing; afterwards results
	// are computed once per date and cached.
	SeriesModeParameterised SeriesMode = "parameterised"

	// SeriesModePreAggregated serves only precomputed results.
	SeriesModePreAggregated SeriesMode = "pre_aggregated"
)

// CostSeries is a date-indexed accessor over DailyCostResult. Reads for
// the same date are pure functions of immutable inputs, so the per-date
// cache tolerates concurrent idempotent overwrites.
type CostSeries struct {
	mode    SeriesMode
	compute CostFunc
	store   cache.Cache

	mu              sync.Mutex
	postAggregation bool
	components      map[string]struct{}
	start, end      types.Day
}

// NewParameterisedSeries builds an on-demand series over the given date
// bounds.
func NewParameterisedSeries(start, end types.Day, compute CostFunc) *CostSeries {
	return &CostSeries{
		mode:       SeriesModeParameterised,
		compute:    compute,
		store:      cache.NewInMemoryCache(),
		components: map[string]struct{}{},
		start:      start,
		end:        end,
	}
}

// NewPreAggregatedSeries builds a series populated explicitly via Add.
func NewPreAggregatedSeries() *CostSeries {
	return &CostSeries{
		mode:       SeriesModePreAggregated,
		store:      cache.NewInMemoryCache(),
		components: map[string]struct{}{},
	}
}

// Mode returns the series' operating mode.
func (s *CostSeries) Mode() SeriesMode { return s.mode }

// StartDay returns the first day the series covers.
func (s *CostSeries) StartDay() types.Day { s.mu.Lock(); defer s.mu.Unlock(); return s.start }

// EndDay returns the last day the series covers.
func (s *CostSeries) EndDay() types.Day { s.mu.Lock(); defer s.mu.Unlock(); return s.end }

// SetPostAggregation marks upstream aggregation as complete, enabling
// per-date caching for parameterised series.
func (s *CostSeries) SetPostAggregation(done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postAggregation = done
}

// PostAggregation reports whether upstream aggregation has completed.
func (s *CostSeries) PostAggregation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postAggregation
}

// Add stores a precomputed result for the day and extends the series
// bounds to include it.
func (s *CostSeries) Add(day types.Day, result *DailyCostResult) {
	s.store.Set(context.Background(), day.String(), result, cache.NoExpiration)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range result.BillComponents() {
		s.components[c] = struct{}{}
	}
	if s.start.IsZero() || day.Before(s.start) {
		s.start = day
	}
	if s.end.IsZero() || day.After(s.end) {
		s.end = day
	}
}

// Invalidate drops the cached result for one day, e.g. after the
// underlying consumption was corrected.
func (s *CostSeries) Invalidate(day types.Day) {
	s.store.Delete(context.Background(), day.String())
}

// DayCost returns the day's cost result per the series mode.
func (s *CostSeries) DayCost(day types.Day) (*DailyCostResult, error) {
	if s.mode == SeriesModePreAggregated {
		if v, ok := s.store.Get(context.Background(), day.String()); ok {
			return v.(*DailyCostResult), nil
		}
		return nil, ierr.NewErrorf("no precomputed costs for %s", day).
			WithHint("Pre-aggregated series never compute on demand").
			Mark(ierr.ErrNotFound)
	}

	if !s.PostAggregation() {
		return s.compute(day)
	}

	if v, ok := s.store.Get(context.Background(), day.String()); ok {
		return v.(*DailyCostResult), nil
	}
	result, err := s.compute(day)
	if err != nil {
		return nil, err
	}
	s.Add(day, result)
	return result, nil
}

// DailyTotal returns the day's full cost including standing charges.
func (s *CostSeries) DailyTotal(day types.Day) (decimal.Decimal, error) {
	r, err := s.DayCost(day)
	if err != nil {
		return decimal.Zero, err
	}
	return r.DailyTotal(), nil
}

// HalfHour returns the total cost of one half-hour slot on the day.
func (s *CostSeries) HalfHour(day types.Day, index int) (decimal.Decimal, error) {
	if index < 0 || index >= types.HalfHoursPerDay {
		return decimal.Zero, ierr.NewErrorf("half hour index %d out of range", index).
			Mark(ierr.ErrValidation)
	}
	r, err := s.DayCost(day)
	if err != nil {
		return decimal.Zero, err
	}
	return r.HalfHourCost(index), nil
}

// BillComponentTypes returns the union of all component names seen so far.
// For a parameterised series after aggregation completes, the union is
// forced by walking the full date range once; before that it may be
// incomplete.
func (s *CostSeries) BillComponentTypes() ([]string, error) {
	if s.mode == SeriesModeParameterised && s.PostAggregation() && s.componentCount() == 0 {
		start, end := s.StartDay(), s.EndDay()
		for day := start; !day.After(end); day = day.AddDays(1) {
			if _, err := s.DayCost(day); err != nil {
				return nil, err
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.components))
	for c := range s.components {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *CostSeries) componentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.components)
}

// TotalCost sums the daily totals over the inclusive date range.
func (s *CostSeries) TotalCost(start, end types.Day) (decimal.Decimal, error) {
	total := decimal.Zero
	for day := start; !day.After(end); day = day.AddDays(1) {
		dayTotal, err := s.DailyTotal(day)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(dayTotal)
	}
	return total, nil
}

// TotalStandingCharges sums the standing charges over the inclusive range.
func (s *CostSeries) TotalStandingCharges(start, end types.Day) (decimal.Decimal, error) {
	total := decimal.Zero
	for day := start; !day.After(end); day = day.AddDays(1) {
		r, err := s.DayCost(day)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(r.TotalStandingCharge())
	}
	return total, nil
}
