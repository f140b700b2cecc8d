// Package service wires meters, tariffs and charge collaborators into the
// resolution and cost computation entry points.
package service

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/gridcost/gridcost/internal/config"
	"github.com/gridcost/gridcost/internal/domain/costs"
	"github.com/gridcost/gridcost/internal/domain/meter"
	"github.com/gridcost/gridcost/internal/domain/tariff"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/logger"
	"github.com/gridcost/gridcost/internal/types"
)

// Resolution failures. Construction failures surface when the resolver is
// built; per-day failures surface from Resolve.
var (
	ErrMissingAccountingTariff                      = errors.New("no accounting tariff available for date")
	ErrOverlappingAccountingTariffs                 = errors.New("overlapping accounting tariff date ranges")
	ErrOverlappingAccountingTariffsForWeekdayTariff = errors.New("overlapping weekday/weekend accounting tariffs of the same type")
	ErrNotAllWeekdayWeekendTariffsOnDate            = errors.New("mixed weekday/weekend and plain tariffs on date")
	ErrTooManyWeekdayWeekendTariffsOnDate           = errors.New("more than one weekday or weekend tariff on date")
	ErrMissingWeekdayWeekendTariff                  = errors.New("missing weekday or weekend tariff for date")
	ErrMissingEconomicTariff                        = errors.New("no economic tariff configured")
)

// TariffResolver owns one meter's tariff layers and answers which tariff
// applies on a given day. Construction validates every layer up front so
// per-day resolution cannot hit malformed data.
//
// Resolution precedence, highest first: override tariffs, meter-specific
// accounting tariffs (with weekday/weekend selection), default tariffs
// preferring non-system-wide ones. A merge tariff covering the day is then
// overlaid on whatever was chosen.
type TariffResolver struct {
	meterID string
	fuel    types.FuelType
	log     *logger.Logger

	specific  []*tariff.AccountingTariff
	defaults  []*tariff.AccountingTariff
	overrides []*tariff.AccountingTariff
	merges    []*tariff.TariffDefinition

	diffOverrides []meter.DifferentialOverride

	economicSingle *tariff.EconomicTariff
	economicSeries *tariff.EconomicTariffSeries

	deps tariff.ChargeDeps

	mu       sync.RWMutex
	resolved map[string]tariff.Tariff
}

// NewTariffResolver builds the resolver from the meter's tariff attributes.
// DCC-sourced tariff start dates are backdated to the meter's first reading
// when the gap is within cfg.Tariffs.MaxBackdateDays, or by the meter's own
// backdate attribute when present.
func NewTariffResolver(m meter.Meter, cfg *config.Configuration, deps tariff.ChargeDeps, log *logger.Logger) (*TariffResolver, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	r := &TariffResolver{
		meterID:       m.ID(),
		fuel:          m.FuelType(),
		log:           log.With("meter_id", m.ID()),
		deps:          deps,
		diffOverrides: m.DifferentialOverrides(),
		resolved:      map[string]tariff.Tariff{},
	}

	defs := append(
		withGeneration(m.Attributes(meter.AttributeAccountingTariffs), tariff.GenerationLegacy),
		withGeneration(m.Attributes(meter.AttributeAccountingTariffGeneric), tariff.GenerationCurrent)...,
	)
	backdateDCCTariffs(defs, m, cfg.Tariffs.MaxBackdateDays)

	for _, def := range defs {
		t, err := tariff.NewAccountingTariff(def, r.fuel, r.meterID, deps)
		if err != nil {
			return nil, err
		}
		if t.IsDefault() {
			r.defaults = append(r.defaults, t)
		} else {
			r.specific = append(r.specific, t)
		}
	}
	sortNewestFirst(r.specific)
	sortNewestFirst(r.defaults)

	for _, def := range withGeneration(m.Attributes(meter.AttributeAccountingTariffOverride), tariff.GenerationCurrent) {
		t, err := tariff.NewAccountingTariff(def, r.fuel, r.meterID, deps)
		if err != nil {
			return nil, err
		}
		r.overrides = append(r.overrides, t)
	}

	for _, def := range withGeneration(m.Attributes(meter.AttributeAccountingTariffMerge), tariff.GenerationCurrent) {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		r.merges = append(r.merges, def)
	}

	if defs := m.Attributes(meter.AttributeEconomicTariffOverTime); len(defs) > 0 {
		series, err := tariff.NewEconomicTariffSeries(defs)
		if err != nil {
			return nil, err
		}
		r.economicSeries = series
	} else if defs := m.Attributes(meter.AttributeEconomicTariff); len(defs) > 0 {
		single, err := tariff.NewEconomicTariff(defs[0])
		if err != nil {
			return nil, err
		}
		r.economicSingle = single
	}

	if err := r.checkSpecificTariffOverlaps(); err != nil {
		return nil, err
	}

	r.log.Debugw("tariff resolver built",
		"specific", len(r.specific),
		"defaults", len(r.defaults),
		"overrides", len(r.overrides),
		"merges", len(r.merges))
	return r, nil
}

func withGeneration(defs []*tariff.TariffDefinition, gen tariff.Generation) []*tariff.TariffDefinition {
	for _, def := range defs {
		if def.Generation == "" {
			def.Generation = gen
		}
	}
	return defs
}

// sortNewestFirst orders competing tariffs so the most recently created
// wins when more than one covers a day; undated definitions sort last.
func sortNewestFirst(tariffs []*tariff.AccountingTariff) {
	sort.SliceStable(tariffs, func(i, j int) bool {
		a, b := tariffs[i].Definition().CreatedAt, tariffs[j].Definition().CreatedAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})
}

// backdateDCCTariffs pulls the earliest smart-meter tariff's start date
// back to the meter's first reading. Smart tariff feeds only begin at
// enrolment, leaving a gap at the start of the consumption data; small
// gaps are assumed to be the same tariff.
func backdateDCCTariffs(defs []*tariff.TariffDefinition, m meter.Meter, maxBackdateDays int) {
	firstReading := m.FirstReadingDay()
	if firstReading.IsZero() {
		return
	}

	dcc := lo.Filter(defs, func(def *tariff.TariffDefinition, _ int) bool { return def.IsDCC() })
	if len(dcc) == 0 {
		return
	}
	earliest := lo.MinBy(dcc, func(a, b *tariff.TariffDefinition) bool {
		return a.DateRange.Start.Before(b.DateRange.Start)
	})

	if override := m.BackdateTariffDays(); override != nil {
		earliest.BackdateStart(earliest.DateRange.Start.AddDays(-*override))
		return
	}
	gap := firstReading.DaysUntil(earliest.DateRange.Start)
	if gap >= 1 && gap <= maxBackdateDays {
		earliest.BackdateStart(firstReading)
	}
}

// checkSpecificTariffOverlaps rejects meter-specific tariffs whose date
// ranges overlap, except a weekday tariff paired with a weekend one.
func (r *TariffResolver) checkSpecificTariffOverlaps() error {
	for i := 0; i < len(r.specific); i++ {
		for j := i + 1; j < len(r.specific); j++ {
			a, b := r.specific[i].Definition(), r.specific[j].Definition()
			if !a.DateRange.Overlaps(b.DateRange) {
				continue
			}
			if a.IsWeekdayWeekend() && b.IsWeekdayWeekend() {
				if (a.Weekday && b.Weekday) || (a.Weekend && b.Weekend) {
					return ierr.WithError(ErrOverlappingAccountingTariffsForWeekdayTariff).
						WithHintf("Tariffs %s and %s are both %s tariffs over overlapping dates",
							a.ID, b.ID, lo.Ternary(a.Weekday, "weekday", "weekend")).
						Mark(ierr.ErrValidation)
				}
				continue
			}
			return ierr.WithError(ErrOverlappingAccountingTariffs).
				WithHintf("Tariffs %s (%s) and %s (%s) overlap", a.ID, a.DateRange, b.ID, b.DateRange).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Resolve returns the tariff that prices the given day, falling back to
// default tariffs when no meter-specific tariff covers it.
func (r *TariffResolver) Resolve(day types.Day) (tariff.Tariff, error) {
	key := day.String()

	r.mu.RLock()
	cached, ok := r.resolved[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	t, err := r.resolve(day, false)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.resolved[key] = t
	r.mu.Unlock()
	return t, nil
}

// ResolveIgnoringDefaults resolves without the default-tariff fallback.
// A miss returns a not-found error the caller is expected to tolerate.
func (r *TariffResolver) ResolveIgnoringDefaults(day types.Day) (tariff.Tariff, error) {
	return r.resolve(day, true)
}

func (r *TariffResolver) resolve(day types.Day, ignoreDefaults bool) (tariff.Tariff, error) {
	for _, t := range r.overrides {
		if t.Definition().InDateRange(day) {
			return t, nil
		}
	}

	chosen, err := r.chooseSpecific(day)
	if err != nil {
		return nil, err
	}

	if chosen == nil && !ignoreDefaults {
		chosen = r.chooseDefault(day)
	}

	if chosen == nil {
		if ignoreDefaults {
			return nil, ierr.NewErrorf("no meter specific accounting tariff on %s", day).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(ErrMissingAccountingTariff).
			WithHintf("Meter %s has no accounting or default tariff covering %s", r.meterID, day).
			Mark(ierr.ErrNotFound)
	}

	return r.applyMerge(day, chosen)
}

// chooseSpecific picks among the meter's own tariffs covering the day,
// applying weekday/weekend selection when any half of a pair is present.
func (r *TariffResolver) chooseSpecific(day types.Day) (*tariff.AccountingTariff, error) {
	candidates := lo.Filter(r.specific, func(t *tariff.AccountingTariff, _ int) bool {
		return t.Definition().InDateRange(day)
	})
	if len(candidates) == 0 {
		return nil, nil
	}

	weekday := lo.Filter(candidates, func(t *tariff.AccountingTariff, _ int) bool {
		return t.Definition().Weekday
	})
	weekend := lo.Filter(candidates, func(t *tariff.AccountingTariff, _ int) bool {
		return t.Definition().Weekend
	})

	if len(weekday)+len(weekend) == 0 {
		return candidates[0], nil
	}

	if len(weekday)+len(weekend) != len(candidates) {
		return nil, ierr.WithError(ErrNotAllWeekdayWeekendTariffsOnDate).
			WithHintf("%d of %d tariffs on %s are weekday/weekend tariffs", len(weekday)+len(weekend), len(candidates), day).
			Mark(ierr.ErrValidation)
	}
	if len(weekday) > 1 || len(weekend) > 1 {
		return nil, ierr.WithError(ErrTooManyWeekdayWeekendTariffsOnDate).
			WithHintf("%d weekday and %d weekend tariffs cover %s", len(weekday), len(weekend), day).
			Mark(ierr.ErrValidation)
	}

	if day.IsWeekend() {
		if len(weekend) == 0 {
			return nil, ierr.WithError(ErrMissingWeekdayWeekendTariff).
				WithHintf("%s is a weekend day but only a weekday tariff covers it", day).
				Mark(ierr.ErrValidation)
		}
		return weekend[0], nil
	}
	if len(weekday) == 0 {
		return nil, ierr.WithError(ErrMissingWeekdayWeekendTariff).
			WithHintf("%s is a weekday but only a weekend tariff covers it", day).
			Mark(ierr.ErrValidation)
	}
	return weekday[0], nil
}

// chooseDefault prefers a default tariff scoped to this meter's group over
// a system-wide one.
func (r *TariffResolver) chooseDefault(day types.Day) *tariff.AccountingTariff {
	candidates := lo.Filter(r.defaults, func(t *tariff.AccountingTariff, _ int) bool {
		return t.Definition().InDateRange(day)
	})
	if len(candidates) == 0 {
		return nil
	}
	if narrow, ok := lo.Find(candidates, func(t *tariff.AccountingTariff) bool {
		return !t.IsSystemWide()
	}); ok {
		return narrow
	}
	return candidates[0]
}

// applyMerge overlays any merge tariff covering the day onto the chosen
// tariff's definition and rebuilds the tariff from the merged result.
func (r *TariffResolver) applyMerge(day types.Day, chosen *tariff.AccountingTariff) (tariff.Tariff, error) {
	for _, overlay := range r.merges {
		if !overlay.InDateRange(day) {
			continue
		}
		merged := chosen.Definition().Merge(overlay)
		t, err := tariff.NewAccountingTariff(merged, r.fuel, r.meterID, r.deps)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Merging tariff %s onto %s produced an invalid tariff", overlay.ID, chosen.Definition().ID).
				Mark(ierr.ErrValidation)
		}
		return t, nil
	}
	return chosen, nil
}

// DifferentialOn reports the day's differential classification. Meter
// overrides win over the resolved tariff; unresolvable days are flat.
func (r *TariffResolver) DifferentialOn(day types.Day) bool {
	for _, o := range r.diffOverrides {
		if o.Range.Contains(day) {
			return o.Differential
		}
	}
	t, err := r.Resolve(day)
	if err != nil {
		return false
	}
	return t.DifferentialOn(day)
}

// AnyDifferentialTariff reports whether any day in the inclusive range is
// classified differential.
func (r *TariffResolver) AnyDifferentialTariff(start, end types.Day) bool {
	for day := start; !day.After(end); day = day.AddDays(1) {
		if r.DifferentialOn(day) {
			return true
		}
	}
	return false
}

// AccountingCost prices the day's consumption with the resolved tariff.
func (r *TariffResolver) AccountingCost(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error) {
	t, err := r.Resolve(day)
	if err != nil {
		return nil, err
	}
	return t.Costs(day, kwhX48)
}

// EconomicCost prices the day's consumption with the economic tariff,
// classified by the meter's accounting tariff so economic and accounting
// presentations of the same meter agree on day/night split.
func (r *TariffResolver) EconomicCost(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error) {
	et, err := r.economicFor(day)
	if err != nil {
		return nil, err
	}
	return et.CostsClassified(day, kwhX48, r.DifferentialOn(day))
}

func (r *TariffResolver) economicFor(day types.Day) (*tariff.EconomicTariff, error) {
	switch {
	case r.economicSeries != nil:
		return r.economicSeries.Find(day)
	case r.economicSingle != nil:
		return r.economicSingle, nil
	default:
		return nil, ierr.WithError(ErrMissingEconomicTariff).
			WithHintf("Meter %s has no economic tariff attribute", r.meterID).
			Mark(ierr.ErrNotFound)
	}
}

// EconomicTariffChangesOverTime reports whether the meter's economic
// tariff is a dated series with more than one entry.
func (r *TariffResolver) EconomicTariffChangesOverTime() bool {
	return r.economicSeries != nil && r.economicSeries.ChangesOverTime()
}

// TariffChangeDays returns the days within the inclusive range on which a
// new dated economic tariff comes into force, in order. Horizon-bound
// starts are placeholders, not real changes, and are excluded.
func (r *TariffResolver) TariffChangeDays(start, end types.Day) []types.Day {
	if r.economicSeries == nil {
		return nil
	}
	var out []types.Day
	for _, dr := range r.economicSeries.DateRanges() {
		d := dr.Start
		if d.IsHorizonBound() || d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return lo.Uniq(out)
}

// LastTariffChangeDay returns the most recent real economic tariff change,
// if any.
func (r *TariffResolver) LastTariffChangeDay() (types.Day, bool) {
	changes := r.TariffChangeDays(types.MinTariffDay, types.MaxTariffDay)
	if len(changes) == 0 {
		return types.Day{}, false
	}
	return changes[len(changes)-1], true
}
