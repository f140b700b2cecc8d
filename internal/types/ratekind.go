package types

import (
	"regexp"
	"strings"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

// RateKind classifies a tariff rate key into a closed set of variants.
// Keys are parsed once at tariff construction; unrecognised keys are
// rejected there rather than deferred into the costing paths.
type RateKind string

const (
	// RateKindFlat is a single flat unit rate ("flat_rate" or "rate").
	RateKindFlat RateKind = "flat"
	// RateKindIndexed is a generic time-of-day unit rate ("rate0".."rate9").
	RateKindIndexed RateKind = "indexed"
	// RateKindDaytime and RateKindNighttime are the legacy differential pair.
	RateKindDaytime   RateKind = "daytime"
	RateKindNighttime RateKind = "nighttime"
	// RateKindTiered is a consumption-tiered unit rate ("tiered_rate0".."tiered_rate9").
	RateKindTiered RateKind = "tiered"
	// RateKindDUOS is a regional red/amber/green time-banded charge.
	RateKindDUOS RateKind = "duos"
	// RateKindTNUOS is the transmission network standing charge flag.
	RateKindTNUOS RateKind = "tnuos"
	// RateKindClimateChangeLevy marks the CCL flag.
	RateKindClimateChangeLevy RateKind = "climate_change_levy"
	// RateKindAgreedAvailability and RateKindExcessAvailability are
	// kVA-capacity standing charges delegated to a capacity calculator.
	RateKindAgreedAvailability RateKind = "agreed_availability"
	RateKindExcessAvailability RateKind = "excess_availability"
	// RateKindStandingCharge is any other named charge billed per
	// day/month/quarter/kWh.
	RateKindStandingCharge RateKind = "standing_charge"
)

var (
	indexedRatePattern = regexp.MustCompile(`^rate[0-9]$`)
	tieredRatePattern  = regexp.MustCompile(`^tiered_rate[0-9]$`)
	duosRatePattern    = regexp.MustCompile(`^duos_(red|amber|green)$`)

	standingChargeKeys = map[string]struct{}{
		"standing_charge":                    {},
		"fixed_charge":                       {},
		"site_fee":                           {},
		"settlement_agency_fee":              {},
		"data_collection_dcda_agent_charge":  {},
		"reactive_power_charge":              {},
		"feed_in_tariff_levy":                {},
		"meter_asset_provider_charge":        {},
		"nhh_automatic_meter_reading_charge": {},
		"other":                              {},
	}
)

// ParseRateKind classifies a rate key, returning an error for keys the
// engine does not understand.
func ParseRateKind(key string) (RateKind, error) {
	switch {
	case key == "flat_rate" || key == "rate":
		return RateKindFlat, nil
	case key == "daytime_rate":
		return RateKindDaytime, nil
	case key == "nighttime_rate":
		return RateKindNighttime, nil
	case indexedRatePattern.MatchString(key):
		return RateKindIndexed, nil
	case tieredRatePattern.MatchString(key):
		return RateKindTiered, nil
	case duosRatePattern.MatchString(key):
		return RateKindDUOS, nil
	case key == "tnuos":
		return RateKindTNUOS, nil
	case key == "climate_change_levy":
		return RateKindClimateChangeLevy, nil
	case key == "agreed_availability_charge":
		return RateKindAgreedAvailability, nil
	case key == "excess_availability_charge":
		return RateKindExcessAvailability, nil
	default:
		if _, ok := standingChargeKeys[key]; ok {
			return RateKindStandingCharge, nil
		}
		return "", ierr.NewErrorf("unrecognised tariff rate key %q", key).
			WithHint("Rate keys must be one of the supported tariff charge types").
			Mark(ierr.ErrValidation)
	}
}

// IsUnitRate reports whether the kind is charged per kWh against the
// half-hourly consumption profile (including tiered rates).
func (k RateKind) IsUnitRate() bool {
	switch k {
	case RateKindFlat, RateKindIndexed, RateKindDaytime, RateKindNighttime, RateKindTiered:
		return true
	}
	return false
}

// IsAvailabilityCharge reports whether the kind is a kVA capacity charge.
func (k RateKind) IsAvailabilityCharge() bool {
	return k == RateKindAgreedAvailability || k == RateKindExcessAvailability
}

// ChargePeriod is the billing period of a standing charge.
type ChargePeriod string

const (
	ChargePeriodDay     ChargePeriod = "day"
	ChargePeriodMonth   ChargePeriod = "month"
	ChargePeriodQuarter ChargePeriod = "quarter"
	ChargePeriodKVA     ChargePeriod = "kva"
	ChargePeriodKWH     ChargePeriod = "kwh"
)

// Validate checks the period against the closed set.
func (p ChargePeriod) Validate() error {
	switch p {
	case ChargePeriodDay, ChargePeriodMonth, ChargePeriodQuarter, ChargePeriodKVA, ChargePeriodKWH:
		return nil
	}
	return ierr.NewErrorf("unexpected charge period %q", string(p)).
		WithHint("Charge periods must be day, month, quarter, kva or kwh").
		Mark(ierr.ErrValidation)
}

// TariffSource identifies where a tariff definition came from.
type TariffSource string

const (
	TariffSourceManual TariffSource = "manual"
	TariffSourceDCC    TariffSource = "dcc"
)

// TariffHolder identifies the level a tariff is attached at.
type TariffHolder string

const (
	TariffHolderMeter TariffHolder = "meter"
	TariffHolderSite  TariffHolder = "site"
	TariffHolderGroup TariffHolder = "group"
)

// FuelType is the metered fuel.
type FuelType string

const (
	FuelTypeElectricity FuelType = "electricity"
	FuelTypeGas         FuelType = "gas"
)

// TriState folds boolean flags across combined results: all true, all
// false, or mixed.
type TriState string

const (
	TriStateTrue  TriState = "true"
	TriStateFalse TriState = "false"
	TriStateMixed TriState = "mixed"
)

// TriStateOf returns the TriState for a single boolean.
func TriStateOf(b bool) TriState {
	if b {
		return TriStateTrue
	}
	return TriStateFalse
}

// FoldTriStates combines flag states from several results.
func FoldTriStates(states []TriState) TriState {
	allTrue, allFalse := true, true
	for _, s := range states {
		if s != TriStateTrue {
			allTrue = false
		}
		if s != TriStateFalse {
			allFalse = false
		}
	}
	switch {
	case allTrue && len(states) > 0:
		return TriStateTrue
	case allFalse && len(states) > 0:
		return TriStateFalse
	default:
		return TriStateMixed
	}
}

// HumanizeKey renders a snake_case rate key as a display name, e.g.
// "standing_charge" becomes "Standing charge".
func HumanizeKey(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
