// Package costs holds the computed daily cost breakdown and the
// date-indexed series that caches it.
package costs

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/types"
)

// DailyCostInput carries the parts of one day's cost breakdown into
// NewDailyCostResult.
type DailyCostInput struct {
	RatesX48        map[string]types.Vector48
	StandingCharges map[string]decimal.Decimal
	Differential    bool
	SystemWide      types.TriState
	Default         types.TriState
	TariffIDs       []string
}

// DailyCostResult is one day's cost breakdown: a half-hourly cost vector
// per bill component plus per-day standing charges. Immutable once
// constructed; totals are derived up front.
type DailyCostResult struct {
	ratesX48        map[string]types.Vector48
	standingCharges map[string]decimal.Decimal
	differential    bool
	systemWide      types.TriState
	isDefault       types.TriState
	tariffIDs       []string

	totalX48            types.Vector48
	totalStandingCharge decimal.Decimal
	totalCost           decimal.Decimal
	componentCosts      map[string]decimal.Decimal
	components          []string
}

// NewDailyCostResult assembles a result and computes its derived totals.
func NewDailyCostResult(in DailyCostInput) *DailyCostResult {
	r := &DailyCostResult{
		ratesX48:        in.RatesX48,
		standingCharges: in.StandingCharges,
		differential:    in.Differential,
		systemWide:      in.SystemWide,
		isDefault:       in.Default,
		tariffIDs:       in.TariffIDs,
	}
	if r.ratesX48 == nil {
		r.ratesX48 = map[string]types.Vector48{}
	}
	if r.standingCharges == nil {
		r.standingCharges = map[string]decimal.Decimal{}
	}

	r.totalX48 = types.SumVectors48(lo.Values(r.ratesX48)...)
	r.totalStandingCharge = decimal.Zero
	for _, v := range r.standingCharges {
		r.totalStandingCharge = r.totalStandingCharge.Add(v)
	}
	r.totalCost = r.totalX48.Sum().Add(r.totalStandingCharge)

	r.componentCosts = make(map[string]decimal.Decimal, len(r.ratesX48)+len(r.standingCharges))
	for name, v := range r.ratesX48 {
		r.componentCosts[name] = v.Sum()
	}
	for name, v := range r.standingCharges {
		r.componentCosts[name] = r.componentCosts[name].Add(v)
	}
	r.components = lo.Keys(r.componentCosts)
	sort.Strings(r.components)
	return r
}

// CostX48 returns the half-hourly cost vector for one component.
func (r *DailyCostResult) CostX48(component string) (types.Vector48, bool) {
	v, ok := r.ratesX48[component]
	return v, ok
}

// CostsX48 returns the total half-hourly cost vector across all components.
func (r *DailyCostResult) CostsX48() types.Vector48 { return r.totalX48 }

// HalfHourCost returns the total cost of one half-hour slot.
func (r *DailyCostResult) HalfHourCost(index int) decimal.Decimal { return r.totalX48[index] }

// RatesAtHalfHour returns each component's cost at one half-hour slot.
func (r *DailyCostResult) RatesAtHalfHour(index int) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.ratesX48))
	for name, v := range r.ratesX48 {
		out[name] = v[index]
	}
	return out
}

// StandingCharges returns the per-day standing charges by component name.
func (r *DailyCostResult) StandingCharges() map[string]decimal.Decimal {
	return lo.Assign(map[string]decimal.Decimal{}, r.standingCharges)
}

// TotalStandingCharge returns the summed standing charges for the day.
func (r *DailyCostResult) TotalStandingCharge() decimal.Decimal { return r.totalStandingCharge }

// DailyTotal returns the full day cost: all components plus standing charges.
func (r *DailyCostResult) DailyTotal() decimal.Decimal { return r.totalCost }

// BillComponents returns every component name, rates and standing charges
// alike, in stable order.
func (r *DailyCostResult) BillComponents() []string { return r.components }

// BillComponentCosts returns per-day totals by component name.
func (r *DailyCostResult) BillComponentCosts() map[string]decimal.Decimal {
	return lo.Assign(map[string]decimal.Decimal{}, r.componentCosts)
}

// Differential reports whether more than one time-of-day unit rate applied.
func (r *DailyCostResult) Differential() bool { return r.differential }

// SystemWide reports whether the contributing tariffs were system wide.
func (r *DailyCostResult) SystemWide() types.TriState { return r.systemWide }

// Default reports whether the contributing tariffs were defaults.
func (r *DailyCostResult) Default() types.TriState { return r.isDefault }

// TariffIDs returns the references of the contributing tariffs.
func (r *DailyCostResult) TariffIDs() []string { return r.tariffIDs }

// ScaleStandingCharges returns a copy with every standing charge scaled by
// pct. Used when a meter's consumption is artificially disaggregated and
// its fixed charges need apportioning.
func (r *DailyCostResult) ScaleStandingCharges(pct decimal.Decimal) *DailyCostResult {
	scaled := make(map[string]decimal.Decimal, len(r.standingCharges))
	for name, v := range r.standingCharges {
		scaled[name] = v.Mul(pct)
	}
	return NewDailyCostResult(DailyCostInput{
		RatesX48:        r.ratesX48,
		StandingCharges: scaled,
		Differential:    r.differential,
		SystemWide:      r.systemWide,
		Default:         r.isDefault,
		TariffIDs:       r.tariffIDs,
	})
}

func (r *DailyCostResult) String() string {
	return fmt.Sprintf("DailyCostResult: total %s, standing charges %s across %d components",
		r.totalCost, r.totalStandingCharge, len(r.components))
}

// Combine merges several results into one: component vectors and standing
// charges are summed by name (absent components count as zero),
// differential is true if any input was, and the system-wide/default flags
// fold to true/false/mixed.
func Combine(results []*DailyCostResult) *DailyCostResult {
	ratesX48 := map[string]types.Vector48{}
	standing := map[string]decimal.Decimal{}
	tariffIDs := []string{}

	for _, r := range results {
		for name, v := range r.ratesX48 {
			ratesX48[name] = ratesX48[name].Add(v)
		}
		for name, v := range r.standingCharges {
			standing[name] = standing[name].Add(v)
		}
		tariffIDs = append(tariffIDs, r.tariffIDs...)
	}

	return NewDailyCostResult(DailyCostInput{
		RatesX48:        ratesX48,
		StandingCharges: standing,
		Differential: lo.SomeBy(results, func(r *DailyCostResult) bool {
			return r.differential
		}),
		SystemWide: types.FoldTriStates(lo.Map(results, func(r *DailyCostResult, _ int) types.TriState {
			return r.systemWide
		})),
		Default: types.FoldTriStates(lo.Map(results, func(r *DailyCostResult, _ int) types.TriState {
			return r.isDefault
		})),
		TariffIDs: lo.Uniq(tariffIDs),
	})
}
