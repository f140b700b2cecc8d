package tariff

import (
	"github.com/shopspring/decimal"

	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// TierBand is one consumption band of a tiered unit rate. High is nil for
// the unbounded final band.
type TierBand struct {
	Low  decimal.Decimal  `json:"low_threshold"`
	High *decimal.Decimal `json:"high_threshold,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// Width returns the band's kWh width, or nil when unbounded.
func (b TierBand) Width() *decimal.Decimal {
	if b.High == nil {
		return nil
	}
	w := b.High.Sub(b.Low)
	return &w
}

// RateSpec is one parsed rate entry of a tariff definition. Kind is filled
// by TariffDefinition.Validate from the rate key; which other fields are
// meaningful depends on the kind.
type RateSpec struct {
	Kind types.RateKind `json:"kind,omitempty"`

	// Rate is the £/kWh unit rate, the standing charge amount, or the
	// per-band £/kWh for DUOS keys. Levy-style flags leave it zero.
	Rate decimal.Decimal `json:"rate"`

	// TimeRange bounds time-of-day unit rates, and for tiered rates gives
	// the half-hour window the tiers apply to.
	TimeRange *types.TimeRange `json:"time_range,omitempty"`

	// Per is the billing period for standing charges.
	Per types.ChargePeriod `json:"per,omitempty"`

	// Tiers are the ordered consumption bands of a tiered rate.
	Tiers []TierBand `json:"tiers,omitempty"`

	// Applies carries boolean flag rates (tnuos).
	Applies bool `json:"applies,omitempty"`
}

// validateForKind checks the spec carries what its kind requires.
func (rs RateSpec) validateForKind(key string, kind types.RateKind) error {
	switch kind {
	case types.RateKindFlat:
		// flat rates need no time range
	case types.RateKindIndexed, types.RateKindDaytime, types.RateKindNighttime:
		if rs.TimeRange == nil {
			return ierr.NewErrorf("rate %q has no time range", key).
				WithHint("Time-of-day unit rates require a from/to time range").
				Mark(ierr.ErrValidation)
		}
		if err := rs.TimeRange.Validate(); err != nil {
			return err
		}
	case types.RateKindTiered:
		if rs.TimeRange == nil {
			return ierr.NewErrorf("tiered rate %q has no time range", key).
				WithHint("Tiered rates require the half-hour window they apply to").
				Mark(ierr.ErrValidation)
		}
		if err := rs.TimeRange.Validate(); err != nil {
			return err
		}
		if err := validateTiers(key, rs.Tiers); err != nil {
			return err
		}
	case types.RateKindStandingCharge:
		if err := rs.Per.Validate(); err != nil {
			return err
		}
	case types.RateKindAgreedAvailability, types.RateKindExcessAvailability:
		if rs.Per != "" && rs.Per != types.ChargePeriodKVA {
			return ierr.NewErrorf("availability charge %q must be billed per kva, got %q", key, string(rs.Per)).
				Mark(ierr.ErrValidation)
		}
	case types.RateKindDUOS, types.RateKindTNUOS, types.RateKindClimateChangeLevy:
		// scalar rate or boolean flag only
	}
	return nil
}

// validateTiers checks bands are ordered, contiguous and only the last is
// unbounded.
func validateTiers(key string, tiers []TierBand) error {
	if len(tiers) == 0 {
		return ierr.NewErrorf("tiered rate %q has no tier bands", key).
			WithHint("Tiered rates require at least one threshold band").
			Mark(ierr.ErrValidation)
	}
	for i, band := range tiers {
		if band.High == nil {
			if i != len(tiers)-1 {
				return ierr.NewErrorf("tiered rate %q: only the final band may be unbounded", key).
					Mark(ierr.ErrValidation)
			}
			continue
		}
		if !band.High.GreaterThan(band.Low) {
			return ierr.NewErrorf("tiered rate %q: band %d high threshold must exceed its low threshold", key, i).
				Mark(ierr.ErrValidation)
		}
		if i+1 < len(tiers) && !tiers[i+1].Low.Equal(*band.High) {
			return ierr.NewErrorf("tiered rate %q: bands %d and %d are not contiguous", key, i, i+1).
				WithHint("Each band's low threshold must equal the previous band's high threshold").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
