package types

import (
	"github.com/shopspring/decimal"
)

// HalfHoursPerDay is the number of half-hour settlement slots in a day.
const HalfHoursPerDay = 48

// Vector48 holds one value per half-hour slot; index 0 is 00:00-00:30.
type Vector48 [HalfHoursPerDay]decimal.Decimal

// Zero48 returns an all-zero vector.
func Zero48() Vector48 { return Vector48{} }

// Single48 returns a vector with the same value in every slot.
func Single48(v decimal.Decimal) Vector48 {
	var out Vector48
	for i := range out {
		out[i] = v
	}
	return out
}

// Add returns the elementwise sum of two vectors.
func (v Vector48) Add(o Vector48) Vector48 {
	var out Vector48
	for i := range out {
		out[i] = v[i].Add(o[i])
	}
	return out
}

// MultiplyScalar returns the vector scaled by s.
func (v Vector48) MultiplyScalar(s decimal.Decimal) Vector48 {
	var out Vector48
	for i := range out {
		out[i] = v[i].Mul(s)
	}
	return out
}

// MultiplyElementwise returns the elementwise product of two vectors.
func (v Vector48) MultiplyElementwise(o Vector48) Vector48 {
	var out Vector48
	for i := range out {
		out[i] = v[i].Mul(o[i])
	}
	return out
}

// Sum returns the sum of all slots.
func (v Vector48) Sum() decimal.Decimal {
	total := decimal.Zero
	for i := range v {
		total = total.Add(v[i])
	}
	return total
}

// SumVectors48 returns the elementwise sum of all the given vectors.
func SumVectors48(vectors ...Vector48) Vector48 {
	var out Vector48
	for _, v := range vectors {
		out = out.Add(v)
	}
	return out
}

var minutesPerSlot = decimal.NewFromInt(30)

// WeightVector48 converts a time-of-day range into per-slot weights: 1 for
// slots fully inside the range, 0 outside, and a fractional minutes-covered
// weight where a boundary does not align to a half hour.
//
// Legacy tariffs treat To as exclusive: 00:00-01:00 covers slots 0 and 1.
// Current tariffs treat To as inclusive of its containing slot:
// 00:00-01:00 covers slots 0, 1 and 2, and 00:00-23:30 covers the whole
// day. Ranges whose To precedes From wrap past midnight, as in an
// overnight nighttime rate.
func WeightVector48(r TimeRange, inclusive bool) Vector48 {
	fromMin := r.From.MinuteOfDay()
	toMin := r.To.MinuteOfDay()

	if inclusive {
		// Count the slot containing To in full.
		toMin = (toMin/30)*30 + 30
		if toMin > 24*60 {
			toMin = 24 * 60
		}
	}

	var out Vector48
	if fromMin < toMin || (!inclusive && fromMin == toMin) {
		// An exclusive range with From equal to To is empty.
		accumulateWeights(&out, fromMin, toMin)
	} else {
		// Wraps past midnight.
		accumulateWeights(&out, fromMin, 24*60)
		accumulateWeights(&out, 0, toMin)
	}
	return out
}

// accumulateWeights adds the coverage of the half-open minute interval
// [from, to) to each slot's weight.
func accumulateWeights(v *Vector48, from, to int) {
	for i := 0; i < HalfHoursPerDay; i++ {
		slotStart := i * 30
		slotEnd := slotStart + 30
		covered := min(to, slotEnd) - max(from, slotStart)
		if covered <= 0 {
			continue
		}
		if covered == 30 {
			v[i] = v[i].Add(decimal.NewFromInt(1))
			continue
		}
		v[i] = v[i].Add(decimal.NewFromInt(int64(covered)).Div(minutesPerSlot))
	}
}
