package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

// InMemoryPeaks implements charges.PeakDemandProvider over a fixed map.
type InMemoryPeaks struct {
	// Peaks holds monthly kVA maxima keyed by "YYYY-MM".
	Peaks map[string]decimal.Decimal
}

func NewInMemoryPeaks() *InMemoryPeaks {
	return &InMemoryPeaks{Peaks: map[string]decimal.Decimal{}}
}

// SetPeak records one month's peak demand.
func (p *InMemoryPeaks) SetPeak(year int, month time.Month, kva decimal.Decimal) {
	p.Peaks[peakKey(year, month)] = kva
}

func (p *InMemoryPeaks) MonthlyPeakKVA(year int, month time.Month) (decimal.Decimal, error) {
	if v, ok := p.Peaks[peakKey(year, month)]; ok {
		return v, nil
	}
	return decimal.Zero, ierr.NewErrorf("no peak demand recorded for %s", peakKey(year, month)).
		Mark(ierr.ErrNotFound)
}

func peakKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}
