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

func TestLevyRateTable_PublishedRates(t *testing.T) {
	table := DefaultLevyRateTable()

	tests := []struct {
		name string
		fuel types.FuelType
		day  types.Day
		key  string
		rate string
	}{
		{
			name: "electricity 2018-19",
			fuel: types.FuelTypeElectricity,
			day:  types.NewDay(2018, time.April, 1),
			key:  "climate_change_levy_(2018-19)",
			rate: "0.00583",
		},
		{
			name: "electricity end of 2019-20",
			fuel: types.FuelTypeElectricity,
			day:  types.NewDay(2020, time.March, 31),
			key:  "climate_change_levy_(2019-20)",
			rate: "0.00847",
		},
		{
			name: "electricity 2021-22",
			fuel: types.FuelTypeElectricity,
			day:  types.NewDay(2021, time.June, 15),
			key:  "climate_change_levy_(2021-22)",
			rate: "0.00775",
		},
		{
			name: "gas 2020-21",
			fuel: types.FuelTypeGas,
			day:  types.NewDay(2020, time.October, 1),
			key:  "climate_change_levy_(2020-21)",
			rate: "0.00406",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, rate, err := table.Rate(tt.fuel, tt.day)
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.True(t, rate.Equal(decimal.RequireFromString(tt.rate)))
		})
	}
}

func TestLevyRateTable_Bounds(t *testing.T) {
	table := DefaultLevyRateTable()

	t.Run("before table begins charges nothing", func(t *testing.T) {
		key, rate, err := table.Rate(types.FuelTypeElectricity, types.NewDay(2017, time.June, 1))
		require.NoError(t, err)
		assert.Equal(t, "climate_change_levy", key)
		assert.True(t, rate.IsZero())
	})

	t.Run("past last published rate errors", func(t *testing.T) {
		_, _, err := table.Rate(types.FuelTypeElectricity, types.NewDay(2022, time.April, 1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingLevyRate))
	})

	t.Run("unknown fuel errors", func(t *testing.T) {
		_, _, err := table.Rate(types.FuelType("coal"), types.NewDay(2020, time.June, 1))
		assert.True(t, errors.Is(err, ErrMissingLevyRate))
	})
}
