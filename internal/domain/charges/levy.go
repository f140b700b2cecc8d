// Package charges implements the external charge collaborators consumed by
// accounting tariffs: the climate change levy table, regional DUOS time
// bands, and agreed-supply-capacity pricing.
package charges

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// ErrMissingLevyRate is returned when no levy rate is published for the
// requested date.
var ErrMissingLevyRate = errors.New("climate change levy rate not set for date")

// LevyRate is a published levy rate for one fiscal-year date range.
type LevyRate struct {
	Range types.DateRange
	Rate  decimal.Decimal
}

// LevyRateTable maps fuel types to dated levy rates.
type LevyRateTable struct {
	rates map[types.FuelType][]LevyRate
}

// NewLevyRateTable builds a table from explicit per-fuel rates.
func NewLevyRateTable(rates map[types.FuelType][]LevyRate) *LevyRateTable {
	return &LevyRateTable{rates: rates}
}

// DefaultLevyRateTable returns the published UK climate change levy rates.
// See https://www.gov.uk/guidance/climate-change-levy-rates
func DefaultLevyRateTable() *LevyRateTable {
	year := func(y int) types.DateRange {
		return types.DateRange{
			Start: types.NewDay(y, time.April, 1),
			End:   types.NewDay(y+1, time.March, 31),
		}
	}
	rate := func(y int, r string) LevyRate {
		return LevyRate{Range: year(y), Rate: decimal.RequireFromString(r)}
	}
	return NewLevyRateTable(map[types.FuelType][]LevyRate{
		types.FuelTypeElectricity: {
			rate(2018, "0.00583"),
			rate(2019, "0.00847"),
			rate(2020, "0.00811"),
			rate(2021, "0.00775"),
		},
		types.FuelTypeGas: {
			rate(2018, "0.00203"),
			rate(2019, "0.00339"),
			rate(2020, "0.00406"),
			rate(2021, "0.00465"),
		},
	})
}

// Rate returns the dated component key and £/kWh levy rate for the fuel on
// the given day. Dates before the table begins carry no levy; dates past
// the last published rate are an error so stale tables are noticed.
func (t *LevyRateTable) Rate(fuel types.FuelType, day types.Day) (string, decimal.Decimal, error) {
	rates, ok := t.rates[fuel]
	if !ok || len(rates) == 0 {
		return "", decimal.Zero, ierr.WithError(ErrMissingLevyRate).
			WithHintf("No levy rates configured for fuel %s", string(fuel)).
			Mark(ierr.ErrValidation)
	}

	latest := rates[0].Range.End
	for _, r := range rates {
		if r.Range.End.After(latest) {
			latest = r.Range.End
		}
		if r.Range.Contains(day) {
			return levyComponentKey(r.Range), r.Rate, nil
		}
	}
	if day.After(latest) {
		return "", decimal.Zero, ierr.WithError(ErrMissingLevyRate).
			WithHintf("Climate change levy not published for %s", day).
			Mark(ierr.ErrValidation)
	}
	return "climate_change_levy", decimal.Zero, nil
}

// levyComponentKey names the component after the fiscal year it covers,
// e.g. "climate_change_levy_(2019-20)".
func levyComponentKey(r types.DateRange) string {
	return fmt.Sprintf("climate_change_levy_(%s-%s)",
		r.Start.Time().Format("2006"), r.End.Time().Format("06"))
}
