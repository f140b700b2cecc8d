// Package meter defines the contract the tariff engine requires from
// whatever supplies meter facts and consumption data. The engine never
// owns this data; it is handed in by the surrounding application.
package meter

import (
	"github.com/gridcost/gridcost/internal/domain/tariff"
	"github.com/gridcost/gridcost/internal/types"
)

// AttributeKind identifies one category of tariff attribute data attached
// to a meter.
type AttributeKind string

const (
	AttributeAccountingTariffs        AttributeKind = "accounting_tariffs"
	AttributeAccountingTariffGeneric  AttributeKind = "accounting_tariff_generic"
	AttributeAccountingTariffOverride AttributeKind = "accounting_tariff_generic_override"
	AttributeAccountingTariffMerge    AttributeKind = "accounting_tariff_generic_merge"
	AttributeEconomicTariff           AttributeKind = "economic_tariff"
	AttributeEconomicTariffOverTime   AttributeKind = "economic_tariff_change_over_time"
)

// DifferentialOverride forces a date range's differential classification
// regardless of the resolved tariff.
type DifferentialOverride struct {
	Range        types.DateRange
	Differential bool
}

// Meter supplies the facts the resolver and cost series need.
type Meter interface {
	// ID is the meter's stable identifier (MPAN/MPRN), also used as the
	// region key for DUOS band lookups.
	ID() string

	FuelType() types.FuelType

	// FirstReadingDay and LastReadingDay bound the meter's consumption data.
	FirstReadingDay() types.Day
	LastReadingDay() types.Day

	// DaysKWHx48 returns the day's half-hourly consumption in kWh.
	DaysKWHx48(day types.Day) (types.Vector48, error)

	// Attributes returns the tariff definitions configured under the given
	// attribute kind. Definitions are handed to the engine unvalidated.
	Attributes(kind AttributeKind) []*tariff.TariffDefinition

	// DifferentialOverrides returns the date-ranged differential
	// classification overrides, if any.
	DifferentialOverrides() []DifferentialOverride

	// BackdateTariffDays overrides the DCC backdating window for this
	// meter; nil means the configured default applies.
	BackdateTariffDays() *int

	// ConstituentMeters returns the underlying meters of an aggregate
	// meter, or an empty slice for a real meter.
	ConstituentMeters() []Meter
}
