package charges

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/types"
)

var decimalOne = decimal.NewFromInt(1)

// PeakDemandProvider supplies a meter's peak demand (kVA) for a calendar
// month, typically derived from half-hourly kW maxima.
type PeakDemandProvider interface {
	MonthlyPeakKVA(year int, month time.Month) (decimal.Decimal, error)
}

// SupplyCapacityCharge prices agreed-supply-capacity standing charges: the
// agreed kVA is billed at the availability rate, and demand above the
// agreed capacity is billed at the excess rate. Monthly amounts are spread
// across the days of the month. Peak lookups are memoized per month.
type SupplyCapacityCharge struct {
	agreedKVA          decimal.Decimal
	ratePerKVAMonth    decimal.Decimal
	excessRatePerMonth decimal.Decimal
	peaks              PeakDemandProvider

	mu        sync.Mutex
	peakCache map[string]decimal.Decimal
}

// NewSupplyCapacityCharge builds a calculator for one meter's agreed
// capacity contract.
func NewSupplyCapacityCharge(agreedKVA, ratePerKVAMonth, excessRatePerKVAMonth decimal.Decimal, peaks PeakDemandProvider) *SupplyCapacityCharge {
	return &SupplyCapacityCharge{
		agreedKVA:          agreedKVA,
		ratePerKVAMonth:    ratePerKVAMonth,
		excessRatePerMonth: excessRatePerKVAMonth,
		peaks:              peaks,
		peakCache:          map[string]decimal.Decimal{},
	}
}

// AgreedCapacityDailyCost returns the day's share of the agreed-capacity
// monthly charge.
func (c *SupplyCapacityCharge) AgreedCapacityDailyCost(day types.Day) (decimal.Decimal, error) {
	monthly := c.agreedKVA.Mul(c.ratePerKVAMonth)
	return monthly.Div(decimal.NewFromInt(int64(day.DaysInMonth()))), nil
}

// ExcessCapacityDailyCost returns the day's share of the excess-capacity
// charge for the month, zero when the month's peak stayed within the
// agreed capacity.
func (c *SupplyCapacityCharge) ExcessCapacityDailyCost(day types.Day) (decimal.Decimal, error) {
	peak, err := c.monthlyPeak(day)
	if err != nil {
		return decimal.Zero, err
	}
	excess := peak.Sub(c.agreedKVA)
	if !excess.IsPositive() {
		return decimal.Zero, nil
	}
	monthly := excess.Mul(c.excessRatePerMonth)
	return monthly.Div(decimal.NewFromInt(int64(day.DaysInMonth()))), nil
}

func (c *SupplyCapacityCharge) monthlyPeak(day types.Day) (decimal.Decimal, error) {
	key := day.Time().Format("2006-01")

	c.mu.Lock()
	if peak, ok := c.peakCache[key]; ok {
		c.mu.Unlock()
		return peak, nil
	}
	c.mu.Unlock()

	peak, err := c.peaks.MonthlyPeakKVA(day.Time().Year(), day.Time().Month())
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.peakCache[key] = peak
	c.mu.Unlock()
	return peak, nil
}
