package env

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegimeAtBoundaries(t *testing.T) {
	testCases := []struct {
		clock float64
		want  Regime
	}{
		{0, RegimeNone},
		{3, RegimeNone},
		{5.75, RegimeNone},
		{6, RegimeModerate},
		{8.75, RegimeModerate},
		{9, RegimePeak},
		{10, RegimePeak},
		{14.75, RegimePeak},
		{15, RegimeModerate},
		{16, RegimeModerate},
		{17.75, RegimeModerate},
		{18, RegimeNone},
		{22, RegimeNone},
		{23.75, RegimeNone},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, RegimeAt(tc.clock), "clock %.2f", tc.clock)
	}
}

func TestAdvanceClockWraps(t *testing.T) {
	assert.Equal(t, 0.25, AdvanceClock(0, 0.25))
	assert.Equal(t, 0.0, AdvanceClock(23.75, 0.25))
	assert.InDelta(t, 1.0, AdvanceClock(23.5, 1.5), 1e-12)

	clock := 0.0
	for i := 0; i < 96; i++ {
		clock = AdvanceClock(clock, 0.25)
		assert.GreaterOrEqual(t, clock, 0.0)
		assert.Less(t, clock, 24.0)
	}
	assert.Equal(t, 0.0, clock)
}

func TestNextBattery(t *testing.T) {
	const bMax = 8000.0

	t.Run("discharge_from_full", func(t *testing.T) {
		assert.InDelta(t, bMax-750, NextBattery(bMax, 320, 750, 0, bMax), 1e-9)
	})

	t.Run("recharge_capped", func(t *testing.T) {
		assert.Equal(t, bMax, NextBattery(7900, 320, 400, 900, bMax))
	})

	t.Run("recharge_below_cap", func(t *testing.T) {
		assert.InDelta(t, 1100, NextBattery(1000, 320, 400, 500, bMax), 1e-9)
	})

	t.Run("bypassed_battery_only_recharges", func(t *testing.T) {
		assert.InDelta(t, 300, NextBattery(200, 320, 320, 100, bMax), 1e-9)
		assert.Equal(t, 200.0, NextBattery(200, 320, 320, 0, bMax))
	})

	t.Run("stays_in_range", func(t *testing.T) {
		assert.Equal(t, bMax, NextBattery(7990, 9000, 9000, 800, bMax))
		assert.Equal(t, 0.0, NextBattery(400, 320, 400, -50, bMax))
	})
}

func TestStochasticHarvesterIsReproducible(t *testing.T) {
	a := NewStochasticHarvester(rand.NewPCG(7, 8))
	b := NewStochasticHarvester(rand.NewPCG(7, 8))

	for i := 0; i < 50; i++ {
		r := Regime(i % 3)
		assert.Equal(t, a.Harvest(r), b.Harvest(r))
	}
}

func TestStochasticHarvesterNightFloor(t *testing.T) {
	h := NewStochasticHarvester(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		assert.GreaterOrEqual(t, h.Harvest(RegimeNone), 100.0)
	}
}

func TestStochasticHarvesterRegimeMeans(t *testing.T) {
	h := NewStochasticHarvester(rand.NewPCG(3, 4))
	const n = 20000

	mean := func(r Regime) float64 {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += h.Harvest(r)
		}
		return sum / n
	}

	assert.InDelta(t, 160, mean(RegimeNone), 5)
	assert.InDelta(t, 520, mean(RegimeModerate), 5)
	assert.InDelta(t, 800, mean(RegimePeak), 5)
}

func TestTransitionModelStaysInRange(t *testing.T) {
	p := DefaultParameters()
	tm := NewTransitionModel(p, rand.NewPCG(11, 12), nil)

	for i := 0; i < 1000; i++ {
		w := tm.NextWorkload()
		assert.GreaterOrEqual(t, w, p.WorkloadLow)
		assert.LessOrEqual(t, w, p.WorkloadHigh)

		h := tm.NextChannelDelay()
		assert.GreaterOrEqual(t, h, p.ChannelDelayLow)
		assert.LessOrEqual(t, h, p.ChannelDelayHigh)
	}
}

func TestTransitionModelDegenerateRange(t *testing.T) {
	p := DefaultParameters()
	p.WorkloadLow, p.WorkloadHigh = 5, 5
	tm := NewTransitionModel(p, rand.NewPCG(1, 1), HarvesterFunc(func(Regime) float64 { return 0 }))

	assert.Equal(t, 5.0, tm.NextWorkload())
	assert.Zero(t, tm.Harvest(RegimePeak))
}
