package tariff

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/domain/costs"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// ErrSeriesNotContiguous is returned when a time-varying economic tariff's
// date ranges overlap, leave a gap, or fail to cover the tariff horizon.
var ErrSeriesNotContiguous = errors.New("economic tariffs do not cover the whole date range")

// EconomicTariff is the simplified tariff model used for forecasting and
// education: a flat rate, or a day/night differential pair, with no
// standing charges. Economic results are always flagged system wide and
// default.
type EconomicTariff struct {
	def *TariffDefinition
}

// NewEconomicTariff validates the definition and wraps it.
func NewEconomicTariff(def *TariffDefinition) (*EconomicTariff, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &EconomicTariff{def: def}, nil
}

func (t *EconomicTariff) Definition() *TariffDefinition { return t.def }
func (t *EconomicTariff) IsSystemWide() bool            { return true }
func (t *EconomicTariff) IsDefault() bool               { return true }

// DifferentialOn reports whether the tariff has a day/night pair.
func (t *EconomicTariff) DifferentialOn(_ types.Day) bool { return t.def.Differential() }

// Rate returns the £/kWh unit rate configured under the given key.
func (t *EconomicTariff) Rate(_ types.Day, key string) decimal.Decimal {
	return t.def.Rates[key].Rate
}

// flatRateSpec finds the flat unit rate, whichever key it was stored under.
func (t *EconomicTariff) flatRateSpec() (RateSpec, bool) {
	for _, key := range []string{KeyFlatRate, "rate"} {
		if rs, ok := t.def.Rates[key]; ok {
			return rs, true
		}
	}
	return RateSpec{}, false
}

// WeightedCost converts the keyed time-of-day rate into a half-hourly cost
// vector against the given consumption.
func (t *EconomicTariff) WeightedCost(_ types.Day, kwhX48 types.Vector48, key string) types.Vector48 {
	rs := t.def.Rates[key]
	if rs.TimeRange == nil {
		return kwhX48.MultiplyScalar(rs.Rate)
	}
	weights := types.WeightVector48(*rs.TimeRange, t.def.InclusiveTimeRanges())
	return weights.MultiplyScalar(rs.Rate).MultiplyElementwise(kwhX48)
}

// Costs prices the day's consumption with no standing charges.
func (t *EconomicTariff) Costs(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error) {
	return t.CostsClassified(day, kwhX48, t.DifferentialOn(day))
}

// CostsClassified prices the day's consumption under an externally decided
// differential classification. The resolver uses this to price economic
// costs with the classification of the meter's accounting tariff rather
// than the economic tariff's own shape.
func (t *EconomicTariff) CostsClassified(day types.Day, kwhX48 types.Vector48, differential bool) (*costs.DailyCostResult, error) {
	differential = differential && t.def.Differential()
	ratesX48 := map[string]types.Vector48{}
	if differential {
		ratesX48[KeyNighttimeRate] = t.WeightedCost(day, kwhX48, KeyNighttimeRate)
		ratesX48[KeyDaytimeRate] = t.WeightedCost(day, kwhX48, KeyDaytimeRate)
	} else {
		rs, ok := t.flatRateSpec()
		if !ok {
			return nil, ierr.NewError("economic tariff has no flat rate").
				WithHintf("Tariff %s configures neither a flat rate nor a day/night pair", t.def.ID).
				Mark(ierr.ErrValidation)
		}
		ratesX48[KeyFlatRate] = kwhX48.MultiplyScalar(rs.Rate)
	}

	return costs.NewDailyCostResult(costs.DailyCostInput{
		RatesX48:     ratesX48,
		Differential: differential,
		SystemWide:   types.TriStateTrue,
		Default:      types.TriStateTrue,
		TariffIDs:    []string{t.def.ID},
	}), nil
}

// EconomicTariffSeries is an economic tariff defined as an ordered sequence
// of non-overlapping date-ranged tariffs. Construction guarantees the
// ranges are contiguous and jointly cover the full tariff horizon, so Find
// cannot miss at runtime.
type EconomicTariffSeries struct {
	tariffs []*EconomicTariff
}

// NewEconomicTariffSeries validates every definition, defaults missing
// start/end dates to the horizon bounds, and checks contiguity.
func NewEconomicTariffSeries(defs []*TariffDefinition) (*EconomicTariffSeries, error) {
	if len(defs) == 0 {
		return nil, ierr.WithError(ErrSeriesNotContiguous).
			WithHint("A time-varying economic tariff needs at least one dated entry").
			Mark(ierr.ErrValidation)
	}

	tariffs := make([]*EconomicTariff, 0, len(defs))
	for _, def := range defs {
		t, err := NewEconomicTariff(def)
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	sort.Slice(tariffs, func(i, j int) bool {
		return tariffs[i].def.DateRange.Start.Before(tariffs[j].def.DateRange.Start)
	})

	next := types.MinTariffDay
	for _, t := range tariffs {
		if !t.def.DateRange.Start.Equal(next) {
			return nil, ierr.WithError(ErrSeriesNotContiguous).
				WithHintf("Expected a tariff starting %s, got %s", next, t.def.DateRange.Start).
				Mark(ierr.ErrValidation)
		}
		next = t.def.DateRange.End.AddDays(1)
	}
	if !next.AddDays(-1).Equal(types.MaxTariffDay) {
		return nil, ierr.WithError(ErrSeriesNotContiguous).
			WithHintf("Tariffs end %s, expected coverage to %s", next.AddDays(-1), types.MaxTariffDay).
			Mark(ierr.ErrValidation)
	}

	return &EconomicTariffSeries{tariffs: tariffs}, nil
}

// Find returns the tariff covering the day. Construction guarantees a
// match; a miss is a programmer error, not recoverable input.
func (s *EconomicTariffSeries) Find(day types.Day) (*EconomicTariff, error) {
	for _, t := range s.tariffs {
		if t.def.InDateRange(day) {
			return t, nil
		}
	}
	return nil, ierr.NewErrorf("no economic tariff configured for %s", day).
		WithHint("Series construction should have guaranteed full horizon coverage").
		Mark(ierr.ErrInternal)
}

func (s *EconomicTariffSeries) Definition() *TariffDefinition { return s.tariffs[0].def }
func (s *EconomicTariffSeries) IsSystemWide() bool            { return true }
func (s *EconomicTariffSeries) IsDefault() bool               { return true }

// ChangesOverTime reports whether more than one dated tariff is configured.
func (s *EconomicTariffSeries) ChangesOverTime() bool { return len(s.tariffs) > 1 }

// DateRanges returns each entry's date range in order.
func (s *EconomicTariffSeries) DateRanges() []types.DateRange {
	out := make([]types.DateRange, len(s.tariffs))
	for i, t := range s.tariffs {
		out[i] = t.def.DateRange
	}
	return out
}

func (s *EconomicTariffSeries) DifferentialOn(day types.Day) bool {
	t, err := s.Find(day)
	if err != nil {
		return false
	}
	return t.DifferentialOn(day)
}

// Rate returns the keyed unit rate of the tariff covering the day.
func (s *EconomicTariffSeries) Rate(day types.Day, key string) (decimal.Decimal, error) {
	t, err := s.Find(day)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Rate(day, key), nil
}

// WeightedCost delegates to the tariff covering the day.
func (s *EconomicTariffSeries) WeightedCost(day types.Day, kwhX48 types.Vector48, key string) (types.Vector48, error) {
	t, err := s.Find(day)
	if err != nil {
		return types.Vector48{}, err
	}
	return t.WeightedCost(day, kwhX48, key), nil
}

func (s *EconomicTariffSeries) Costs(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error) {
	t, err := s.Find(day)
	if err != nil {
		return nil, err
	}
	return t.Costs(day, kwhX48)
}

// CostsClassified delegates to the tariff covering the day.
func (s *EconomicTariffSeries) CostsClassified(day types.Day, kwhX48 types.Vector48, differential bool) (*costs.DailyCostResult, error) {
	t, err := s.Find(day)
	if err != nil {
		return nil, err
	}
	return t.CostsClassified(day, kwhX48, differential)
}
