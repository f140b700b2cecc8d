package charges

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcost/gridcost/internal/types"
)

func testDUOSTable() *StaticDUOSTable {
	return NewStaticDUOSTable(map[string]DUOSRegionBands{
		"region-a": {
			Red: []types.TimeRange{
				types.NewTimeRange(types.NewTimeOfDay(16, 0), types.NewTimeOfDay(19, 0)),
			},
			Amber: []types.TimeRange{
				types.NewTimeRange(types.NewTimeOfDay(7, 0), types.NewTimeOfDay(16, 0)),
				types.NewTimeRange(types.NewTimeOfDay(19, 0), types.NewTimeOfDay(23, 0)),
			},
		},
	})
}

func TestStaticDUOSTable_WeekdayBands(t *testing.T) {
	table := testDUOSTable()

	// a Wednesday
	bands, err := table.ChargeBands("region-a", types.NewDay(2022, time.June, 1))
	require.NoError(t, err)

	// 16:00-19:00 is six red slots
	assert.True(t, bands.Red.Sum().Equal(decimal.NewFromInt(6)))
	// 07:00-16:00 and 19:00-23:00 are 18 + 8 amber slots
	assert.True(t, bands.Amber.Sum().Equal(decimal.NewFromInt(26)))
	assert.True(t, bands.Green.Sum().Equal(decimal.NewFromInt(16)))

	// every slot is weighted into exactly one band
	total := bands.Red.Add(bands.Amber).Add(bands.Green)
	for i := range total {
		assert.True(t, total[i].Equal(decimal.NewFromInt(1)), "slot %d", i)
	}

	// 17:00 falls in the red band
	assert.True(t, bands.Red[34].Equal(decimal.NewFromInt(1)))
	assert.True(t, bands.Green[34].IsZero())
}

func TestStaticDUOSTable_WeekendsAreAllGreen(t *testing.T) {
	table := testDUOSTable()

	// a Saturday
	bands, err := table.ChargeBands("region-a", types.NewDay(2022, time.June, 4))
	require.NoError(t, err)

	assert.True(t, bands.Red.Sum().IsZero())
	assert.True(t, bands.Amber.Sum().IsZero())
	assert.True(t, bands.Green.Sum().Equal(decimal.NewFromInt(48)))
}

func TestStaticDUOSTable_UnknownRegion(t *testing.T) {
	table := testDUOSTable()
	_, err := table.ChargeBands("region-z", types.NewDay(2022, time.June, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDUOSRegion))
}
