// Package testutil provides in-memory implementations of the engine's
// collaborator interfaces for tests.
package testutil

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/gridcost/gridcost/internal/domain/meter"
	"github.com/gridcost/gridcost/internal/domain/tariff"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// InMemoryMeter implements meter.Meter over maps.
type InMemoryMeter struct {
	MeterID      string
	Fuel         types.FuelType
	FirstReading types.Day
	LastReading  types.Day

	// Readings holds half-hourly kWh keyed by Day.String(). Fallback is
	// served for days in the reading range with no explicit entry.
	Readings map[string]types.Vector48
	Fallback *types.Vector48

	TariffAttributes map[meter.AttributeKind][]*tariff.TariffDefinition
	DiffOverrides    []meter.DifferentialOverride
	BackdateDays     *int
	Constituents     []meter.Meter
}

// NewInMemoryMeter creates an electricity meter with readings over the
// inclusive date range, every day set to the given half-hourly profile.
func NewInMemoryMeter(id string, first, last types.Day, kwhX48 types.Vector48) *InMemoryMeter {
	return &InMemoryMeter{
		MeterID:          id,
		Fuel:             types.FuelTypeElectricity,
		FirstReading:     first,
		LastReading:      last,
		Readings:         map[string]types.Vector48{},
		Fallback:         &kwhX48,
		TariffAttributes: map[meter.AttributeKind][]*tariff.TariffDefinition{},
	}
}

// FlatProfile returns a day of constant consumption per half hour.
func FlatProfile(kwhPerHalfHour float64) types.Vector48 {
	var v types.Vector48
	d := decimal.NewFromFloat(kwhPerHalfHour)
	for i := range v {
		v[i] = d
	}
	return v
}

// WithTariff appends a tariff definition under the given attribute kind.
func (m *InMemoryMeter) WithTariff(kind meter.AttributeKind, def *tariff.TariffDefinition) *InMemoryMeter {
	m.TariffAttributes[kind] = append(m.TariffAttributes[kind], def)
	return m
}

// SetReading overrides one day's consumption.
func (m *InMemoryMeter) SetReading(day types.Day, kwhX48 types.Vector48) {
	m.Readings[day.String()] = kwhX48
}

func (m *InMemoryMeter) ID() string                 { return m.MeterID }
func (m *InMemoryMeter) FuelType() types.FuelType   { return m.Fuel }
func (m *InMemoryMeter) FirstReadingDay() types.Day { return m.FirstReading }
func (m *InMemoryMeter) LastReadingDay() types.Day  { return m.LastReading }

func (m *InMemoryMeter) DaysKWHx48(day types.Day) (types.Vector48, error) {
	if v, ok := m.Readings[day.String()]; ok {
		return v, nil
	}
	inRange := !day.Before(m.FirstReading) && !day.After(m.LastReading)
	if inRange && m.Fallback != nil {
		return *m.Fallback, nil
	}
	return types.Vector48{}, ierr.NewErrorf("no consumption data for %s on meter %s", day, m.MeterID).
		Mark(ierr.ErrNotFound)
}

func (m *InMemoryMeter) Attributes(kind meter.AttributeKind) []*tariff.TariffDefinition {
	return m.TariffAttributes[kind]
}

func (m *InMemoryMeter) DifferentialOverrides() []meter.DifferentialOverride {
	return m.DiffOverrides
}

func (m *InMemoryMeter) BackdateTariffDays() *int { return m.BackdateDays }

func (m *InMemoryMeter) ConstituentMeters() []meter.Meter {
	return lo.Ternary(m.Constituents != nil, m.Constituents, []meter.Meter{})
}
