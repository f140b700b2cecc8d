package charges

import (
	"errors"

	"github.com/gridcost/gridcost/internal/domain/tariff"
	ierr "github.com/gridcost/gridcost/internal/errors"
	"github.com/gridcost/gridcost/internal/types"
)

// ErrUnknownDUOSRegion is returned when no band configuration exists for a
// requested region key.
var ErrUnknownDUOSRegion = errors.New("unknown duos region")

// DUOSRegionBands configures a distribution region's red/amber/green time
// windows. Weekend days are charged entirely at the green rate, matching
// distribution network practice.
type DUOSRegionBands struct {
	Red   []types.TimeRange
	Amber []types.TimeRange
}

// StaticDUOSTable serves DUOS time bands from an in-memory region map,
// keyed by meter identifier prefix or explicit region key.
type StaticDUOSTable struct {
	regions map[string]DUOSRegionBands
}

// NewStaticDUOSTable builds a table from explicit region configurations.
func NewStaticDUOSTable(regions map[string]DUOSRegionBands) *StaticDUOSTable {
	return &StaticDUOSTable{regions: regions}
}

// ChargeBands returns the region's red/amber/green weight vectors for the
// day. Every half-hour slot is weighted into exactly one band: red and
// amber as configured (weekdays only), green everywhere else.
func (t *StaticDUOSTable) ChargeBands(regionKey string, day types.Day) (tariff.DUOSBands, error) {
	region, ok := t.regions[regionKey]
	if !ok {
		return tariff.DUOSBands{}, ierr.WithError(ErrUnknownDUOSRegion).
			WithHintf("No DUOS bands configured for region %q", regionKey).
			Mark(ierr.ErrNotFound)
	}

	var bands tariff.DUOSBands
	if !day.IsWeekend() {
		bands.Red = sumBandWeights(region.Red)
		bands.Amber = sumBandWeights(region.Amber)
	}

	// Green picks up every slot not already red or amber.
	covered := bands.Red.Add(bands.Amber)
	one := types.Single48(decimalOne)
	for i := range covered {
		bands.Green[i] = one[i].Sub(covered[i])
	}
	return bands, nil
}

func sumBandWeights(ranges []types.TimeRange) types.Vector48 {
	out := types.Zero48()
	for _, r := range ranges {
		out = out.Add(types.WeightVector48(r, false))
	}
	return out
}
