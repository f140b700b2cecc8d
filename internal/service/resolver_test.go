package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gridcost/gridcost/internal/config"
	"github.com/gridcost/gridcost/internal/domain/meter"
	"github.com/gridcost/gridcost/internal/domain/tariff"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/logger"
	"github.com/gridcost/gridcost/internal/testutil"
	"github.com/gridcost/gridcost/internal/types"
)

type TariffResolverTestSuite struct {
	suite.Suite
	cfg *config.Configuration
	log *logger.Logger
}

func TestTariffResolver(t *testing.T) {
	suite.Run(t, new(TariffResolverTestSuite))
}

func (s *TariffResolverTestSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
}

func (s *TariffResolverTestSuite) newMeter() *testutil.InMemoryMeter {
	return testutil.NewInMemoryMeter(
		"mpan-1100000000001",
		types.NewDay(2021, time.January, 1),
		types.NewDay(2022, time.December, 31),
		testutil.FlatProfile(0.5),
	)
}

func (s *TariffResolverTestSuite) flatDef(id, rate string, start, end types.Day) *tariff.TariffDefinition {
	return &tariff.TariffDefinition{
		ID:        id,
		DateRange: types.DateRange{Start: start, End: end},
		Rates: map[string]tariff.RateSpec{
			tariff.KeyFlatRate: {Rate: decimal.RequireFromString(rate)},
		},
	}
}

func (s *TariffResolverTestSuite) resolver(m meter.Meter) *TariffResolver {
	r, err := NewTariffResolver(m, s.cfg, tariff.ChargeDeps{}, s.log)
	s.Require().NoError(err)
	return r
}

func (s *TariffResolverTestSuite) TestSpecificBeatsDefault() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("specific-2021", "0.15", types.NewDay(2021, time.January, 1), types.NewDay(2021, time.December, 31)))

	defaultDef := s.flatDef("site-default", "0.30", types.Day{}, types.Day{})
	defaultDef.Holder = types.TariffHolderSite
	m.WithTariff(meter.AttributeAccountingTariffGeneric, defaultDef)

	r := s.resolver(m)

	during, err := r.Resolve(types.NewDay(2021, time.June, 1))
	s.Require().NoError(err)
	s.Equal("specific-2021", during.Definition().ID)
	s.False(during.IsDefault())

	after, err := r.Resolve(types.NewDay(2022, time.June, 1))
	s.Require().NoError(err)
	s.Equal("site-default", after.Definition().ID)
	s.True(after.IsDefault())
	s.True(after.IsSystemWide())

	_, err = r.ResolveIgnoringDefaults(types.NewDay(2022, time.June, 1))
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *TariffResolverTestSuite) TestGroupDefaultBeatsSystemWideDefault() {
	m := s.newMeter()

	siteDef := s.flatDef("site-default", "0.30", types.Day{}, types.Day{})
	siteDef.Holder = types.TariffHolderSite
	m.WithTariff(meter.AttributeAccountingTariffGeneric, siteDef)

	groupDef := s.flatDef("group-default", "0.25", types.Day{}, types.Day{})
	groupDef.Holder = types.TariffHolderGroup
	m.WithTariff(meter.AttributeAccountingTariffGeneric, groupDef)

	r := s.resolver(m)
	resolved, err := r.Resolve(types.NewDay(2022, time.June, 1))
	s.Require().NoError(err)
	s.Equal("group-default", resolved.Definition().ID)
}

func (s *TariffResolverTestSuite) TestOverrideWinsOverSpecific() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("specific", "0.15", types.Day{}, types.Day{}))
	m.WithTariff(meter.AttributeAccountingTariffOverride,
		s.flatDef("override", "0.99", types.NewDay(2022, time.June, 1), types.NewDay(2022, time.June, 30)))

	r := s.resolver(m)

	resolved, err := r.Resolve(types.NewDay(2022, time.June, 15))
	s.Require().NoError(err)
	s.Equal("override", resolved.Definition().ID)

	resolved, err = r.Resolve(types.NewDay(2022, time.July, 1))
	s.Require().NoError(err)
	s.Equal("specific", resolved.Definition().ID)
}

func (s *TariffResolverTestSuite) TestMissingTariff() {
	r := s.resolver(s.newMeter())
	_, err := r.Resolve(types.NewDay(2022, time.June, 1))
	s.Require().Error(err)
	s.True(errors.Is(err, ErrMissingAccountingTariff))
	s.True(ierr.IsNotFound(err))
}

func (s *TariffResolverTestSuite) TestOverlappingTariffsRejected() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("a", "0.15", types.NewDay(2021, time.January, 1), types.NewDay(2021, time.December, 31)))
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("b", "0.20", types.NewDay(2021, time.June, 1), types.NewDay(2022, time.June, 1)))

	_, err := NewTariffResolver(m, s.cfg, tariff.ChargeDeps{}, s.log)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrOverlappingAccountingTariffs))
}

func (s *TariffResolverTestSuite) TestWeekdayWeekendSelection() {
	m := s.newMeter()

	weekdayDef := s.flatDef("weekday", "0.20", types.Day{}, types.Day{})
	weekdayDef.Weekday = true
	m.WithTariff(meter.AttributeAccountingTariffGeneric, weekdayDef)

	weekendDef := s.flatDef("weekend", "0.10", types.Day{}, types.Day{})
	weekendDef.Weekend = true
	m.WithTariff(meter.AttributeAccountingTariffGeneric, weekendDef)

	r := s.resolver(m)

	// Wednesday
	wed, err := r.Resolve(types.NewDay(2022, time.June, 1))
	s.Require().NoError(err)
	s.Equal("weekday", wed.Definition().ID)

	// Saturday
	sat, err := r.Resolve(types.NewDay(2022, time.June, 4))
	s.Require().NoError(err)
	s.Equal("weekend", sat.Definition().ID)
}

func (s *TariffResolverTestSuite) TestWeekdayWeekendFailures() {
	s.Run("missing weekend half", func() {
		m := s.newMeter()
		weekdayDef := s.flatDef("weekday-only", "0.20", types.Day{}, types.Day{})
		weekdayDef.Weekday = true
		m.WithTariff(meter.AttributeAccountingTariffGeneric, weekdayDef)

		r := s.resolver(m)

		_, err := r.Resolve(types.NewDay(2022, time.June, 1))
		s.NoError(err)

		_, err = r.Resolve(types.NewDay(2022, time.June, 4))
		s.Require().Error(err)
		s.True(errors.Is(err, ErrMissingWeekdayWeekendTariff))
	})

	s.Run("two weekday halves overlapping", func() {
		m := s.newMeter()
		for _, id := range []string{"weekday-1", "weekday-2"} {
			def := s.flatDef(id, "0.20", types.Day{}, types.Day{})
			def.Weekday = true
			m.WithTariff(meter.AttributeAccountingTariffGeneric, def)
		}
		_, err := NewTariffResolver(m, s.cfg, tariff.ChargeDeps{}, s.log)
		s.Require().Error(err)
		s.True(errors.Is(err, ErrOverlappingAccountingTariffsForWeekdayTariff))
	})
}

func (s *TariffResolverTestSuite) TestDCCBackdating() {
	start := types.NewDay(2021, time.February, 1)

	s.Run("small gap pulls start back to first reading", func() {
		m := s.newMeter()
		m.FirstReading = types.NewDay(2021, time.January, 15)
		def := s.flatDef("smart", "0.18", start, types.Day{})
		def.Source = types.TariffSourceDCC
		m.WithTariff(meter.AttributeAccountingTariffGeneric, def)

		r := s.resolver(m)
		resolved, err := r.Resolve(types.NewDay(2021, time.January, 20))
		s.Require().NoError(err)
		s.Equal("smart", resolved.Definition().ID)
	})

	s.Run("large gap is not backdated", func() {
		m := s.newMeter()
		m.FirstReading = types.NewDay(2020, time.January, 1)
		def := s.flatDef("smart", "0.18", start, types.Day{})
		def.Source = types.TariffSourceDCC
		m.WithTariff(meter.AttributeAccountingTariffGeneric, def)

		r := s.resolver(m)
		_, err := r.Resolve(types.NewDay(2020, time.June, 1))
		s.Require().Error(err)
		s.True(errors.Is(err, ErrMissingAccountingTariff))
	})

	s.Run("meter attribute forces the backdate window", func() {
		m := s.newMeter()
		m.FirstReading = types.NewDay(2020, time.January, 1)
		days := 400
		m.BackdateDays = &days
		def := s.flatDef("smart", "0.18", start, types.Day{})
		def.Source = types.TariffSourceDCC
		m.WithTariff(meter.AttributeAccountingTariffGeneric, def)

		r := s.resolver(m)
		resolved, err := r.Resolve(types.NewDay(2020, time.June, 1))
		s.Require().NoError(err)
		s.Equal("smart", resolved.Definition().ID)
	})
}

func (s *TariffResolverTestSuite) TestMergeOverlay() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("specific", "0.10", types.Day{}, types.Day{}))

	vat := decimal.NewFromInt(5)
	overlay := &tariff.TariffDefinition{
		ID:        "merge-vat",
		DateRange: types.DateRange{Start: types.NewDay(2022, time.June, 1), End: types.NewDay(2022, time.June, 30)},
		Rates: map[string]tariff.RateSpec{
			tariff.KeyFlatRate: {Rate: decimal.RequireFromString("0.20")},
		},
		VATPercent: &vat,
	}
	m.WithTariff(meter.AttributeAccountingTariffMerge, overlay)

	r := s.resolver(m)

	merged, err := r.Resolve(types.NewDay(2022, time.June, 15))
	s.Require().NoError(err)
	s.Require().NotNil(merged.Definition().VATPercent)

	result, err := merged.Costs(types.NewDay(2022, time.June, 15), types.Single48(decimal.NewFromInt(1)))
	s.Require().NoError(err)
	// 48 kWh at the merged 0.20 rate plus 5% VAT
	s.True(result.DailyTotal().Equal(decimal.RequireFromString("10.08")))
	s.Contains(result.BillComponents(), "vat@5%")

	outside, err := r.Resolve(types.NewDay(2022, time.July, 15))
	s.Require().NoError(err)
	s.Nil(outside.Definition().VATPercent)
}

func (s *TariffResolverTestSuite) TestDifferentialOverride() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("flat", "0.15", types.Day{}, types.Day{}))
	m.DiffOverrides = []meter.DifferentialOverride{
		{
			Range:        types.DateRange{Start: types.NewDay(2022, time.June, 1), End: types.NewDay(2022, time.June, 30)},
			Differential: true,
		},
	}

	r := s.resolver(m)

	s.True(r.DifferentialOn(types.NewDay(2022, time.June, 15)))
	s.False(r.DifferentialOn(types.NewDay(2022, time.July, 15)))
	s.True(r.AnyDifferentialTariff(types.NewDay(2022, time.May, 1), types.NewDay(2022, time.July, 31)))
	s.False(r.AnyDifferentialTariff(types.NewDay(2022, time.July, 1), types.NewDay(2022, time.July, 31)))
}

func (s *TariffResolverTestSuite) TestEconomicCost() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("flat", "0.15", types.Day{}, types.Day{}))

	cut := types.NewDay(2021, time.October, 1)
	m.WithTariff(meter.AttributeEconomicTariffOverTime,
		s.flatDef("econ-old", "0.12", types.Day{}, cut.AddDays(-1)))
	m.WithTariff(meter.AttributeEconomicTariffOverTime,
		s.flatDef("econ-new", "0.28", cut, types.Day{}))

	r := s.resolver(m)
	s.True(r.EconomicTariffChangesOverTime())

	kwh := types.Single48(decimal.NewFromInt(1))

	before, err := r.EconomicCost(cut.AddDays(-1), kwh)
	s.Require().NoError(err)
	s.True(before.DailyTotal().Equal(decimal.RequireFromString("5.76")))

	after, err := r.EconomicCost(cut, kwh)
	s.Require().NoError(err)
	s.True(after.DailyTotal().Equal(decimal.RequireFromString("13.44")))

	changes := r.TariffChangeDays(types.NewDay(2021, time.January, 1), types.NewDay(2022, time.December, 31))
	s.Require().Len(changes, 1)
	s.True(changes[0].Equal(cut))

	last, ok := r.LastTariffChangeDay()
	s.Require().True(ok)
	s.True(last.Equal(cut))
}

func (s *TariffResolverTestSuite) TestEconomicCostWithoutEconomicTariff() {
	m := s.newMeter()
	m.WithTariff(meter.AttributeAccountingTariffGeneric,
		s.flatDef("flat", "0.15", types.Day{}, types.Day{}))

	r := s.resolver(m)
	_, err := r.EconomicCost(types.NewDay(2022, time.June, 1), types.Vector48{})
	s.Require().Error(err)
	s.True(errors.Is(err, ErrMissingEconomicTariff))
}

func (s *TariffResolverTestSuite) TestLegacyTariffAttributeKind() {
	m := s.newMeter()
	def := &tariff.TariffDefinition{
		ID: "legacy-day-night",
		Rates: map[string]tariff.RateSpec{
			tariff.KeyNighttimeRate: {Rate: decimal.RequireFromString("0.05"), TimeRange: timeRangePtr(0, 0, 7, 0)},
			tariff.KeyDaytimeRate:   {Rate: decimal.RequireFromString("0.15"), TimeRange: timeRangePtr(7, 0, 24, 0)},
		},
	}
	m.WithTariff(meter.AttributeAccountingTariffs, def)

	r := s.resolver(m)
	resolved, err := r.Resolve(types.NewDay(2021, time.June, 1))
	s.Require().NoError(err)
	s.Equal(tariff.GenerationLegacy, resolved.Definition().Generation)
	s.True(resolved.DifferentialOn(types.NewDay(2021, time.June, 1)))
}

func timeRangePtr(fh, fm, th, tm int) *types.TimeRange {
	r := types.NewTimeRange(types.NewTimeOfDay(fh, fm), types.NewTimeOfDay(th, tm))
	return &r
}
