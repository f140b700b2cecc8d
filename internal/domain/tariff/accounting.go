package tariff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/domain/costs"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// Construction and computation failures for accounting tariffs.
var (
	ErrOverlappingTimeRanges     = errors.New("overlapping differential tariff time ranges")
	ErrIncompleteTimeRanges      = errors.New("incomplete differential tariff time ranges")
	ErrTimeRangesNotOn30Min      = errors.New("differential tariff time ranges not on 30 minute boundary")
	ErrUnexpectedRateType        = errors.New("unexpected rate type")
	ErrMissingChargeCollaborator = errors.New("tariff rate requires a charge collaborator that was not supplied")
)

// AccountingTariff is the full billing tariff model: time-of-day and
// tiered unit rates, per-kWh and per-period standing charges, levies,
// regional DUOS charges and VAT.
type AccountingTariff struct {
	def     *TariffDefinition
	fuel    types.FuelType
	meterID string
	deps    ChargeDeps
}

// NewAccountingTariff validates the definition (including differential
// time-range coverage for current-generation tariffs) and wraps it with
// the collaborators its rates need.
func NewAccountingTariff(def *TariffDefinition, fuel types.FuelType, meterID string, deps ChargeDeps) (*AccountingTariff, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	t := &AccountingTariff{def: def, fuel: fuel, meterID: meterID, deps: deps}
	if def.Differential() {
		if err := t.checkDifferentialTimeRanges(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *AccountingTariff) Definition() *TariffDefinition { return t.def }
func (t *AccountingTariff) IsSystemWide() bool            { return t.def.IsSystemWide() }
func (t *AccountingTariff) IsDefault() bool               { return t.def.IsDefault() }

// DifferentialOn reports whether unit rates vary by time of day.
func (t *AccountingTariff) DifferentialOn(_ types.Day) bool { return t.def.Differential() }

// checkDifferentialTimeRanges enforces that the unit-rate time segments
// jointly cover every half hour exactly once. The coverage and boundary
// checks are deliberately skipped for legacy-generation tariffs, which
// predate the stricter data feed and cannot be corrected retrospectively.
func (t *AccountingTariff) checkDifferentialTimeRanges() error {
	if t.def.Generation == GenerationLegacy {
		return nil
	}

	ranges := []types.TimeRange{}
	for _, key := range t.def.UnitRateKeys() {
		rs := t.def.Rates[key]
		if rs.TimeRange != nil {
			ranges = append(ranges, *rs.TimeRange)
		}
	}

	for _, r := range ranges {
		if !r.On30MinuteBoundaries() {
			return ierr.WithError(ErrTimeRangesNotOn30Min).
				WithHintf("Time range %s is not aligned to half hours", r).
				Mark(ierr.ErrValidation)
		}
	}

	coverage := types.Zero48()
	for _, r := range ranges {
		coverage = coverage.Add(types.WeightVector48(r, true))
	}
	one := decimal.NewFromInt(1)
	for i := range coverage {
		switch {
		case coverage[i].IsZero():
			return ierr.WithError(ErrIncompleteTimeRanges).
				WithHintf("No unit rate covers half hour %d (%s)", i, rangesSummary(ranges)).
				Mark(ierr.ErrValidation)
		case coverage[i].GreaterThan(one):
			return ierr.WithError(ErrOverlappingTimeRanges).
				WithHintf("Half hour %d is covered more than once (%s)", i, rangesSummary(ranges)).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func rangesSummary(ranges []types.TimeRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// Costs computes the day's full cost breakdown. Components are assembled
// in a fixed order; VAT is computed last, from the complete pre-VAT set.
func (t *AccountingTariff) Costs(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error) {
	ratesX48, err := t.unitRateCosts(kwhX48)
	if err != nil {
		return nil, err
	}

	for name, v := range t.perKWHStandingCharges(kwhX48) {
		ratesX48[name] = v
	}

	standingCharges, err := t.standingCharges(day)
	if err != nil {
		return nil, err
	}

	if t.def.ClimateChangeLevy {
		name, v, err := t.levyCosts(day, kwhX48)
		if err != nil {
			return nil, err
		}
		ratesX48[name] = v
	}

	if t.def.HasDUOSCharges() {
		duos, err := t.duosCosts(day, kwhX48)
		if err != nil {
			return nil, err
		}
		for name, v := range duos {
			ratesX48[name] = v
		}
	}

	if t.def.VATPercent != nil && t.def.VATPercent.IsPositive() {
		name, v := t.vatCosts(ratesX48, standingCharges)
		ratesX48[name] = v
	}

	return costs.NewDailyCostResult(costs.DailyCostInput{
		RatesX48:        ratesX48,
		StandingCharges: standingCharges,
		Differential:    t.def.Differential(),
		SystemWide:      types.TriStateOf(t.IsSystemWide()),
		Default:         types.TriStateOf(t.IsDefault()),
		TariffIDs:       []string{t.def.ID},
	}), nil
}

// unitRateCosts prices the flat, time-of-day and tiered unit rates.
func (t *AccountingTariff) unitRateCosts(kwhX48 types.Vector48) (map[string]types.Vector48, error) {
	out := map[string]types.Vector48{}

	if !t.def.Differential() {
		rs, ok := t.flatRateSpec()
		if !ok {
			return nil, ierr.NewError("tariff has no flat unit rate").
				WithHintf("Tariff %s is non-differential but configures no flat rate", t.def.ID).
				Mark(ierr.ErrValidation)
		}
		out[KeyFlatRate] = kwhX48.MultiplyScalar(rs.Rate)
		return out, nil
	}

	for _, key := range t.def.UnitRateKeys() {
		rs := t.def.Rates[key]
		switch rs.Kind {
		case types.RateKindTiered:
			for name, v := range t.tieredCostsX48(rs, kwhX48) {
				out[name] = v
			}
		case types.RateKindDaytime, types.RateKindNighttime:
			weights := types.WeightVector48(*rs.TimeRange, t.def.InclusiveTimeRanges())
			out[key] = weights.MultiplyScalar(rs.Rate).MultiplyElementwise(kwhX48)
		case types.RateKindIndexed:
			weights := types.WeightVector48(*rs.TimeRange, t.def.InclusiveTimeRanges())
			out[t.timeRangeName(*rs.TimeRange)] = weights.MultiplyScalar(rs.Rate).MultiplyElementwise(kwhX48)
		case types.RateKindFlat:
			out[KeyFlatRate] = kwhX48.MultiplyScalar(rs.Rate)
		}
	}
	return out, nil
}

// flatRateSpec finds the flat unit rate, whichever key it was stored under.
func (t *AccountingTariff) flatRateSpec() (RateSpec, bool) {
	for _, key := range []string{KeyFlatRate, "rate"} {
		if rs, ok := t.def.Rates[key]; ok {
			return rs, true
		}
	}
	return RateSpec{}, false
}

// tieredCostsX48 prices a tiered rate across its half-hour window,
// producing one component per threshold band. The boundary value belongs
// to the lower band: consumption exactly at a threshold is charged at the
// band below it.
func (t *AccountingTariff) tieredCostsX48(rs RateSpec, kwhX48 types.Vector48) map[string]types.Vector48 {
	out := map[string]types.Vector48{}

	fromIdx := rs.TimeRange.From.HalfHourIndex()
	toIdx := rs.TimeRange.To.HalfHourIndex()
	if toIdx >= types.HalfHoursPerDay {
		toIdx = types.HalfHoursPerDay - 1
	}

	for hh := fromIdx; hh <= toIdx; hh++ {
		kwh := kwhX48[hh]
		for _, band := range rs.Tiers {
			above := kwh.Sub(band.Low)
			if !above.IsPositive() {
				continue
			}
			inBand := above
			if width := band.Width(); width != nil && inBand.GreaterThan(*width) {
				inBand = *width
			}
			name := t.tierName(rs, band)
			v := out[name]
			v[hh] = v[hh].Add(band.Rate.Mul(inBand))
			out[name] = v
		}
	}
	return out
}

// timeRangeName renders a component name for a time-of-day rate,
// suffixed for weekday/weekend tariff halves.
func (t *AccountingTariff) timeRangeName(r types.TimeRange) string {
	return t.appendWeekdayWeekend(r.String())
}

// tierName describes one threshold band within its time window.
func (t *AccountingTariff) tierName(rs RateSpec, band TierBand) string {
	var threshold string
	switch {
	case band.High == nil:
		threshold = fmt.Sprintf("above %s kwh", band.Low.Round(0))
	case band.Low.IsZero():
		threshold = fmt.Sprintf("below %s kwh", band.High.Round(0))
	default:
		threshold = fmt.Sprintf("%s to %s kwh", band.Low.Round(0), band.High.Round(0))
	}
	return t.appendWeekdayWeekend(rs.TimeRange.String() + ": " + threshold)
}

func (t *AccountingTariff) appendWeekdayWeekend(name string) string {
	if t.def.Weekend {
		return name + " (weekends)"
	}
	if t.def.Weekday {
		return name + " (weekdays)"
	}
	return name
}

// perKWHStandingCharges prices charges billed per kWh consumed; they track
// the consumption profile rather than the clock, so they become x48
// components instead of per-day amounts.
func (t *AccountingTariff) perKWHStandingCharges(kwhX48 types.Vector48) map[string]types.Vector48 {
	out := map[string]types.Vector48{}
	for key, rs := range t.def.Rates {
		if rs.Kind == types.RateKindStandingCharge && rs.Per == types.ChargePeriodKWH {
			out[types.HumanizeKey(key)] = kwhX48.MultiplyScalar(rs.Rate)
		}
	}
	return out
}

// standingCharges prices the non-per-kWh standing charges for the day,
// pro-rating monthly and quarterly amounts and delegating capacity and
// TNUOS charges to their calculators.
func (t *AccountingTariff) standingCharges(day types.Day) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for key, rs := range t.def.Rates {
		switch rs.Kind {
		case types.RateKindStandingCharge:
			if rs.Per == types.ChargePeriodKWH {
				continue // handled as an x48 component
			}
			amount, err := t.proRatedDailyCharge(day, key, rs)
			if err != nil {
				return nil, err
			}
			out[key] = amount
		case types.RateKindAgreedAvailability:
			if t.deps.Capacity == nil {
				return nil, t.missingCollaborator(key)
			}
			amount, err := t.deps.Capacity.AgreedCapacityDailyCost(day)
			if err != nil {
				return nil, err
			}
			out[key] = amount
		case types.RateKindExcessAvailability:
			if t.deps.Capacity == nil {
				return nil, t.missingCollaborator(key)
			}
			amount, err := t.deps.Capacity.ExcessCapacityDailyCost(day)
			if err != nil {
				return nil, err
			}
			out[key] = amount
		case types.RateKindTNUOS:
			if !rs.Applies {
				continue
			}
			if t.deps.TNUOS == nil {
				return nil, t.missingCollaborator(key)
			}
			amount, err := t.deps.TNUOS.Cost(day)
			if err != nil {
				return nil, err
			}
			out[key] = amount
		}
	}
	return out, nil
}

// proRatedDailyCharge converts a standing charge into its daily share.
func (t *AccountingTariff) proRatedDailyCharge(day types.Day, key string, rs RateSpec) (decimal.Decimal, error) {
	switch rs.Per {
	case types.ChargePeriodDay:
		return rs.Rate, nil
	case types.ChargePeriodMonth:
		return rs.Rate.Div(decimal.NewFromInt(int64(day.DaysInMonth()))), nil
	case types.ChargePeriodQuarter:
		return rs.Rate.Div(decimal.NewFromInt(int64(day.DaysInQuarter()))), nil
	case types.ChargePeriodKVA:
		// Reactive and other kVA charges outside the agreed/excess
		// availability pair are not supplied by meter feeds; charge nothing.
		return decimal.Zero, nil
	default:
		return decimal.Zero, ierr.WithError(ErrUnexpectedRateType).
			WithHintf("Charge %q has unsupported billing period %q", key, string(rs.Per)).
			Mark(ierr.ErrValidation)
	}
}

func (t *AccountingTariff) missingCollaborator(key string) error {
	return ierr.WithError(ErrMissingChargeCollaborator).
		WithHintf("Rate %q on tariff %s needs a collaborator that was not configured", key, t.def.ID).
		Mark(ierr.ErrSystem)
}

// levyCosts prices the climate change levy from the fuel/date rate table.
func (t *AccountingTariff) levyCosts(day types.Day, kwhX48 types.Vector48) (string, types.Vector48, error) {
	if t.deps.Levy == nil {
		return "", types.Vector48{}, t.missingCollaborator("climate_change_levy")
	}
	name, rate, err := t.deps.Levy.Rate(t.fuel, day)
	if err != nil {
		return "", types.Vector48{}, err
	}
	return name, kwhX48.MultiplyScalar(rate), nil
}

// duosCosts prices the regional red/amber/green time-banded charges.
func (t *AccountingTariff) duosCosts(day types.Day, kwhX48 types.Vector48) (map[string]types.Vector48, error) {
	if t.deps.DUOS == nil {
		return nil, t.missingCollaborator("duos")
	}
	bands, err := t.deps.DUOS.ChargeBands(t.meterID, day)
	if err != nil {
		return nil, err
	}

	weightsByKey := map[string]types.Vector48{
		"duos_red":   bands.Red,
		"duos_amber": bands.Amber,
		"duos_green": bands.Green,
	}

	out := map[string]types.Vector48{}
	for key, rs := range t.def.Rates {
		if rs.Kind != types.RateKindDUOS {
			continue
		}
		weights, ok := weightsByKey[key]
		if !ok {
			return nil, ierr.WithError(ErrUnexpectedRateType).
				WithHintf("Unknown DUOS band key %q", key).
				Mark(ierr.ErrValidation)
		}
		out[key] = kwhX48.MultiplyElementwise(weights).MultiplyScalar(rs.Rate)
	}
	return out, nil
}

// vatCosts computes the single VAT component from the fully assembled
// pre-VAT rate components, spreading standing-charge VAT evenly across the
// day so it is visible in half-hourly presentations.
func (t *AccountingTariff) vatCosts(ratesX48 map[string]types.Vector48, standingCharges map[string]decimal.Decimal) (string, types.Vector48) {
	vat := t.def.VATPercent.Div(decimal.NewFromInt(100))

	preVAT := types.Zero48()
	for _, v := range ratesX48 {
		preVAT = preVAT.Add(v)
	}
	vatX48 := preVAT.MultiplyScalar(vat)

	standingTotal := decimal.Zero
	for _, v := range standingCharges {
		standingTotal = standingTotal.Add(v)
	}
	if standingTotal.IsPositive() {
		perSlot := standingTotal.Mul(vat).Div(decimal.NewFromInt(types.HalfHoursPerDay))
		vatX48 = vatX48.Add(types.Single48(perSlot))
	}

	name := fmt.Sprintf("vat@%s%%", t.def.VATPercent.Round(0))
	return name, vatX48
}
