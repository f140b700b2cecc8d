package tariff

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcost/gridcost/internal/types"
)

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func flatDefinition(rate string) *TariffDefinition {
	return &TariffDefinition{
		Name: "test flat",
		DateRange: types.NewDateRange(
			types.NewDay(2022, time.January, 1),
			types.NewDay(2022, time.December, 31),
		),
		Rates: map[string]RateSpec{
			KeyFlatRate: {Rate: mustDecimal(rate)},
		},
	}
}

func TestTariffDefinition_Validate(t *testing.T) {
	def := flatDefinition("0.15")
	require.NoError(t, def.Validate())

	assert.NotEmpty(t, def.ID)
	assert.Equal(t, GenerationCurrent, def.Generation)
	assert.Equal(t, types.RateKindFlat, def.Rates[KeyFlatRate].Kind)
	assert.False(t, def.Differential())
}

func TestTariffDefinition_Validate_Failures(t *testing.T) {
	t.Run("no rates", func(t *testing.T) {
		def := flatDefinition("0.15")
		def.Rates = map[string]RateSpec{}
		assert.Error(t, def.Validate())
	})

	t.Run("unknown rate key", func(t *testing.T) {
		def := flatDefinition("0.15")
		def.Rates["mystery_rate"] = RateSpec{Rate: mustDecimal("0.1")}
		assert.Error(t, def.Validate())
	})

	t.Run("weekday and weekend both set", func(t *testing.T) {
		def := flatDefinition("0.15")
		def.Weekday = true
		def.Weekend = true
		assert.Error(t, def.Validate())
	})

	t.Run("vat out of range", func(t *testing.T) {
		def := flatDefinition("0.15")
		vat := mustDecimal("120")
		def.VATPercent = &vat
		assert.Error(t, def.Validate())
	})

	t.Run("start after end", func(t *testing.T) {
		def := flatDefinition("0.15")
		def.DateRange = types.DateRange{
			Start: types.NewDay(2022, time.June, 1),
			End:   types.NewDay(2022, time.January, 1),
		}
		assert.Error(t, def.Validate())
	})

	t.Run("time of day rate without time range", func(t *testing.T) {
		def := flatDefinition("0.15")
		def.Rates["rate0"] = RateSpec{Rate: mustDecimal("0.1")}
		assert.Error(t, def.Validate())
	})

	t.Run("non contiguous tiers", func(t *testing.T) {
		def := flatDefinition("0.15")
		high := mustDecimal("50")
		def.Rates["tiered_rate0"] = RateSpec{
			TimeRange: rangePtr(0, 0, 23, 30),
			Tiers: []TierBand{
				{Low: decimal.Zero, High: &high, Rate: mustDecimal("0.2")},
				{Low: mustDecimal("60"), Rate: mustDecimal("0.1")},
			},
		}
		assert.Error(t, def.Validate())
	})
}

func rangePtr(fh, fm, th, tm int) *types.TimeRange {
	r := types.NewTimeRange(types.NewTimeOfDay(fh, fm), types.NewTimeOfDay(th, tm))
	return &r
}

func TestTariffDefinition_HorizonDefaults(t *testing.T) {
	def := flatDefinition("0.15")
	def.DateRange = types.DateRange{}
	require.NoError(t, def.Validate())
	assert.True(t, def.DateRange.Start.Equal(types.MinTariffDay))
	assert.True(t, def.DateRange.End.Equal(types.MaxTariffDay))
	assert.True(t, def.InDateRange(types.NewDay(2030, time.June, 15)))
}

func TestTariffDefinition_Differential(t *testing.T) {
	t.Run("legacy day night pair", func(t *testing.T) {
		def := &TariffDefinition{
			Generation: GenerationLegacy,
			Rates: map[string]RateSpec{
				KeyDaytimeRate:   {Rate: mustDecimal("0.15"), TimeRange: rangePtr(7, 0, 24, 0)},
				KeyNighttimeRate: {Rate: mustDecimal("0.05"), TimeRange: rangePtr(0, 0, 7, 0)},
			},
		}
		require.NoError(t, def.Validate())
		assert.True(t, def.Differential())
		assert.False(t, def.InclusiveTimeRanges())
	})

	t.Run("current indexed rates", func(t *testing.T) {
		def := &TariffDefinition{
			Rates: map[string]RateSpec{
				"rate0": {Rate: mustDecimal("0.05"), TimeRange: rangePtr(0, 0, 6, 30)},
				"rate1": {Rate: mustDecimal("0.15"), TimeRange: rangePtr(7, 0, 23, 30)},
			},
		}
		require.NoError(t, def.Validate())
		assert.True(t, def.Differential())
		assert.True(t, def.InclusiveTimeRanges())
		assert.Equal(t, []string{"rate0", "rate1"}, def.UnitRateKeys())
	})

	t.Run("flat only is not differential", func(t *testing.T) {
		def := flatDefinition("0.15")
		require.NoError(t, def.Validate())
		assert.False(t, def.Differential())
	})
}

func TestTariffDefinition_ClimateChangeLevyRateKey(t *testing.T) {
	def := flatDefinition("0.15")
	def.Rates["climate_change_levy"] = RateSpec{Rate: mustDecimal("0.00775")}
	require.NoError(t, def.Validate())

	// the rates entry becomes the flag so the levy table is consulted
	assert.True(t, def.ClimateChangeLevy)
	assert.NotContains(t, def.Rates, "climate_change_levy")
	assert.Equal(t, []string{KeyFlatRate}, def.UnitRateKeys())
}

func TestTariffDefinition_HolderFlags(t *testing.T) {
	def := flatDefinition("0.15")
	def.Holder = types.TariffHolderSite
	require.NoError(t, def.Validate())
	assert.True(t, def.IsDefault())
	assert.True(t, def.IsSystemWide())

	def = flatDefinition("0.15")
	def.Holder = types.TariffHolderGroup
	require.NoError(t, def.Validate())
	assert.True(t, def.IsDefault())
	assert.False(t, def.IsSystemWide())

	def = flatDefinition("0.15")
	require.NoError(t, def.Validate())
	assert.False(t, def.IsDefault())
}

func TestTariffDefinition_Merge(t *testing.T) {
	base := flatDefinition("0.15")
	base.Rates["standing_charge"] = RateSpec{Rate: mustDecimal("0.30"), Per: types.ChargePeriodDay}
	require.NoError(t, base.Validate())

	vat := mustDecimal("5")
	overlay := &TariffDefinition{
		Rates: map[string]RateSpec{
			KeyFlatRate: {Rate: mustDecimal("0.20")},
		},
		VATPercent:        &vat,
		ClimateChangeLevy: true,
	}
	require.NoError(t, overlay.Validate())

	merged := base.Merge(overlay)
	assert.True(t, merged.Rates[KeyFlatRate].Rate.Equal(mustDecimal("0.20")))
	assert.True(t, merged.Rates["standing_charge"].Rate.Equal(mustDecimal("0.30")))
	assert.True(t, merged.ClimateChangeLevy)
	require.NotNil(t, merged.VATPercent)
	assert.True(t, merged.VATPercent.Equal(vat))

	// the base definition is untouched
	assert.True(t, base.Rates[KeyFlatRate].Rate.Equal(mustDecimal("0.15")))
	assert.False(t, base.ClimateChangeLevy)
}

func TestTariffDefinition_BackdateStart(t *testing.T) {
	def := flatDefinition("0.15")
	require.NoError(t, def.Validate())
	def.BackdateStart(types.NewDay(2021, time.June, 1))
	assert.True(t, def.DateRange.Start.Equal(types.NewDay(2021, time.June, 1)))
}
