package service

import (
	"github.com/gridcost/gridcost/internal/config"
	"github.com/gridcost/gridcost/internal/domain/costs"
	"github.com/gridcost/gridcost/internal/domain/meter"
	"github.com/gridcost/gridcost/internal/domain/tariff"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/logger"
	"github.com/gridcost/gridcost/internal/types"
)

// CostService builds cost series for meters, including combined series for
// aggregate meters made of several underlying ones.
type CostService struct {
	cfg  *config.Configuration
	deps tariff.ChargeDeps
	log  *logger.Logger
}

func NewCostService(cfg *config.Configuration, deps tariff.ChargeDeps, log *logger.Logger) *CostService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &CostService{cfg: cfg, deps: deps, log: log}
}

// ResolverFor builds a tariff resolver for one meter.
func (s *CostService) ResolverFor(m meter.Meter) (*TariffResolver, error) {
	return NewTariffResolver(m, s.cfg, s.deps, s.log)
}

// AccountingCosts returns a parameterised series pricing the meter's
// consumption with its resolved accounting tariffs.
func (s *CostService) AccountingCosts(m meter.Meter, r *TariffResolver) *costs.CostSeries {
	return costs.NewParameterisedSeries(m.FirstReadingDay(), m.LastReadingDay(), func(day types.Day) (*costs.DailyCostResult, error) {
		kwhX48, err := m.DaysKWHx48(day)
		if err != nil {
			return nil, err
		}
		return r.AccountingCost(day, kwhX48)
	})
}

// EconomicCosts returns a parameterised series pricing the meter's
// consumption with its economic tariff.
func (s *CostService) EconomicCosts(m meter.Meter, r *TariffResolver) *costs.CostSeries {
	return costs.NewParameterisedSeries(m.FirstReadingDay(), m.LastReadingDay(), func(day types.Day) (*costs.DailyCostResult, error) {
		kwhX48, err := m.DaysKWHx48(day)
		if err != nil {
			return nil, err
		}
		return r.EconomicCost(day, kwhX48)
	})
}

// MeterCosts pairs a constituent meter with its cost series.
type MeterCosts struct {
	Meter  meter.Meter
	Series *costs.CostSeries
}

// CombineFromMeters builds a pre-aggregated series for an aggregate meter
// by summing its constituents' results day by day over the inclusive range.
// Each day combines over the meters whose reading range covers it;
// constituents installed later or decommissioned earlier are simply left
// out of that day's sum.
//
// With requireAll set (accounting costs), a day is skipped when any
// covering meter has no cost data for it; a partial sum over covering
// meters would understate the bill. Without it (economic costs), days sum
// over whichever covering meters have data.
func (s *CostService) CombineFromMeters(parts []MeterCosts, start, end types.Day, requireAll bool) (*costs.CostSeries, error) {
	combined := costs.NewPreAggregatedSeries()

	for day := start; !day.After(end); day = day.AddDays(1) {
		results := make([]*costs.DailyCostResult, 0, len(parts))
		incomplete := false

		for _, p := range parts {
			if day.Before(p.Meter.FirstReadingDay()) || day.After(p.Meter.LastReadingDay()) {
				continue
			}
			result, err := p.Series.DayCost(day)
			if err != nil {
				if ierr.IsNotFound(err) {
					incomplete = true
					continue
				}
				return nil, err
			}
			results = append(results, result)
		}

		if len(results) == 0 || (requireAll && incomplete) {
			continue
		}
		combined.Add(day, costs.Combine(results))
	}

	combined.SetPostAggregation(true)
	return combined, nil
}
