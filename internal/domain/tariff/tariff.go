package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/domain/costs"
	"github.com/gridcost/gridcost/internal/types"
)

// Tariff is anything that can price a day's half-hourly consumption.
type Tariff interface {
	// DifferentialOn reports whether the tariff charges time-varying unit
	// rates on the given day.
	DifferentialOn(day types.Day) bool

	// Costs computes the day's cost breakdown for the given consumption.
	Costs(day types.Day, kwhX48 types.Vector48) (*costs.DailyCostResult, error)

	IsSystemWide() bool
	IsDefault() bool

	// Definition exposes the underlying validated definition.
	Definition() *TariffDefinition
}

// DUOSBands carries a region's red/amber/green time-band weight vectors;
// each slot's weights sum to at most one.
type DUOSBands struct {
	Red   types.Vector48
	Amber types.Vector48
	Green types.Vector48
}

// DUOSTable resolves a region's distribution-use-of-system time bands.
type DUOSTable interface {
	ChargeBands(regionKey string, day types.Day) (DUOSBands, error)
}

// LevyTable resolves climate-change-levy rates by fuel and date, returning
// the dated component key and the £/kWh rate.
type LevyTable interface {
	Rate(fuel types.FuelType, day types.Day) (string, decimal.Decimal, error)
}

// CapacityCalculator prices agreed-supply-capacity (kVA) standing charges.
type CapacityCalculator interface {
	AgreedCapacityDailyCost(day types.Day) (decimal.Decimal, error)
	ExcessCapacityDailyCost(day types.Day) (decimal.Decimal, error)
}

// TNUOSCalculator prices the transmission network standing charge.
type TNUOSCalculator interface {
	Cost(day types.Day) (decimal.Decimal, error)
}

// ChargeDeps bundles the external charge collaborators an accounting
// tariff may need. Fields may be nil when the tariff configures no rate
// that uses them.
type ChargeDeps struct {
	Levy     LevyTable
	DUOS     DUOSTable
	Capacity CapacityCalculator
	TNUOS    TNUOSCalculator
}
