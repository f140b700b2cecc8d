// Package tariff holds the tariff data model and the cost computations
// that turn a day's half-hourly consumption into a cost breakdown.
package tariff

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
	"github.com/gridcost/gridcost/internal/validator"
)

// Generation distinguishes how a tariff's time-of-day ranges are
// interpreted and which construction checks apply. Legacy tariffs use
// exclusive end-of-range boundaries and skip the coverage checks; current
// tariffs use inclusive boundaries and are checked strictly.
type Generation string

const (
	GenerationLegacy  Generation = "legacy"
	GenerationCurrent Generation = "current"
)

// Well-known rate component keys.
const (
	KeyFlatRate      = "flat_rate"
	KeyDaytimeRate   = "daytime_rate"
	KeyNighttimeRate = "nighttime_rate"
)

// TariffDefinition is an immutable, validated description of one tariff:
// its rates, date range and flags. Construct via meter attribute data, call
// Validate once, and treat as read-only thereafter.
type TariffDefinition struct {
	// ID is the tariff reference; generated when the source data has none.
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	DateRange types.DateRange     `json:"date_range"`
	Rates     map[string]RateSpec `json:"rates" validate:"required,min=1"`

	Source     types.TariffSource `json:"source"`
	Default    bool               `json:"default"`
	SystemWide bool               `json:"system_wide"`
	Holder     types.TariffHolder `json:"holder,omitempty"`

	// Weekday/Weekend mark one half of a weekday/weekend tariff pair.
	Weekday bool `json:"weekday,omitempty"`
	Weekend bool `json:"weekend,omitempty"`

	// VATPercent, when set and positive, adds a vat@N% component.
	VATPercent *decimal.Decimal `json:"vat,omitempty"`

	// ClimateChangeLevy adds a fuel- and date-indexed levy component.
	ClimateChangeLevy bool `json:"climate_change_levy,omitempty"`

	Generation Generation `json:"generation,omitempty"`

	// CreatedAt orders competing generic tariffs, newest first.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Validate parses every rate key into its RateKind, checks each rate spec,
// and enforces the definition-level invariants. It must be called (once)
// before the definition is used.
func (d *TariffDefinition) Validate() error {
	if d.ID == "" {
		d.ID = types.GenerateIDWithPrefix(types.IDPrefixTariff)
	}
	if d.Generation == "" {
		d.Generation = GenerationCurrent
	}
	if err := validator.ValidateRequest(d); err != nil {
		return err
	}
	d.DateRange = types.NewDateRange(d.DateRange.Start, d.DateRange.End)
	if err := d.DateRange.Validate(); err != nil {
		return err
	}
	if d.Weekday && d.Weekend {
		return ierr.NewError("tariff flagged as both weekday and weekend").
			WithHintf("Tariff %s must be one half of a weekday/weekend pair, not both", d.ID).
			Mark(ierr.ErrValidation)
	}
	if d.VATPercent != nil && (d.VATPercent.IsNegative() || d.VATPercent.GreaterThan(decimal.NewFromInt(100))) {
		return ierr.NewErrorf("vat percentage %s out of range", d.VATPercent).
			WithHint("VAT must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}

	for key, rs := range d.Rates {
		kind, err := types.ParseRateKind(key)
		if err != nil {
			return err
		}
		if err := rs.validateForKind(key, kind); err != nil {
			return err
		}
		if kind == types.RateKindClimateChangeLevy {
			// the levy rate comes from the fuel- and date-indexed table,
			// not from the tariff; a rates entry only switches it on
			d.ClimateChangeLevy = true
			delete(d.Rates, key)
			continue
		}
		rs.Kind = kind
		d.Rates[key] = rs
	}
	return nil
}

// InDateRange reports whether the tariff applies on the given day.
func (d *TariffDefinition) InDateRange(day types.Day) bool {
	return d.DateRange.Contains(day)
}

// IsDCC reports whether the tariff was sourced from the DCC.
func (d *TariffDefinition) IsDCC() bool { return d.Source == types.TariffSourceDCC }

// IsWeekdayWeekend reports whether the tariff is one half of a
// weekday/weekend pair.
func (d *TariffDefinition) IsWeekdayWeekend() bool { return d.Weekday || d.Weekend }

// IsDefault treats site- and group-held tariffs as defaults alongside the
// explicit flag.
func (d *TariffDefinition) IsDefault() bool {
	return d.Default || d.Holder == types.TariffHolderSite || d.Holder == types.TariffHolderGroup
}

// IsSystemWide treats site-held tariffs as system wide alongside the
// explicit flag.
func (d *TariffDefinition) IsSystemWide() bool {
	return d.SystemWide || d.Holder == types.TariffHolderSite
}

// InclusiveTimeRanges reports whether time-of-day ranges include the slot
// their To boundary starts.
func (d *TariffDefinition) InclusiveTimeRanges() bool {
	return d.Generation != GenerationLegacy
}

// UnitRateKeys returns the per-kWh unit rate keys (flat, time-of-day and
// tiered) in stable order.
func (d *TariffDefinition) UnitRateKeys() []string {
	keys := lo.Filter(lo.Keys(d.Rates), func(k string, _ int) bool {
		return d.Rates[k].Kind.IsUnitRate()
	})
	sort.Strings(keys)
	return keys
}

// HasDUOSCharges reports whether any duos_* rate keys are configured.
func (d *TariffDefinition) HasDUOSCharges() bool {
	return lo.SomeBy(lo.Values(d.Rates), func(rs RateSpec) bool {
		return rs.Kind == types.RateKindDUOS
	})
}

// Differential reports whether the tariff charges different unit rates at
// different times of day. Legacy tariffs are differential when they carry
// the day/night pair; current tariffs when any configured unit rate is not
// flat.
func (d *TariffDefinition) Differential() bool {
	if d.Generation == GenerationLegacy {
		_, ok := d.Rates[KeyNighttimeRate]
		return ok
	}
	keys := d.UnitRateKeys()
	if len(keys) == 0 {
		return false
	}
	return lo.SomeBy(keys, func(k string) bool {
		return d.Rates[k].Kind != types.RateKindFlat
	})
}

// BackdateStart pulls the tariff's start date back; used only while the
// resolver adjusts freshly loaded DCC tariffs, before the definition is
// handed out.
func (d *TariffDefinition) BackdateStart(day types.Day) {
	d.DateRange.Start = day
}

// Merge returns a new definition with the overlay's rates merged over the
// base. Overlay entries win per key; base keys never disappear. VAT and
// levy flags follow the overlay when set there.
func (d *TariffDefinition) Merge(overlay *TariffDefinition) *TariffDefinition {
	merged := *d
	merged.Rates = lo.Assign(map[string]RateSpec{}, d.Rates, overlay.Rates)
	if overlay.VATPercent != nil {
		merged.VATPercent = overlay.VATPercent
	}
	if overlay.ClimateChangeLevy {
		merged.ClimateChangeLevy = true
	}
	return &merged
}
