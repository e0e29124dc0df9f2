package algos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foliosim/pkg/backtest"
)

func twoInstrumentEngine(dates []time.Time, chain ...backtest.Algo) *backtest.Engine {
	feed := backtest.NewMemFeed()
	for _, sym := range []string{"A", "B"} {
		obs := make(backtest.Series, 0, len(dates))
		px := 10.0
		if sym == "B" {
			px = 20.0
		}
		for _, d := range dates {
			obs = append(obs, backtest.Observation{Date: d, Value: px})
		}
		feed.SetPrices(sym, obs)
	}
	root := backtest.NewStrategy("root", chain...)
	root.AddChild(backtest.NewInstrument("A"))
	root.AddChild(backtest.NewInstrument("B"))
	return &backtest.Engine{Root: root, Feed: feed, Dates: dates, InitialCapital: 100_000}
}

func TestWeighSpecified_TradesToWeights(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2)}
	e := twoInstrumentEngine(dates,
		NewRunOnce(),
		WeighSpecified(map[string]float64{"A": 0.6, "B": 0.4}),
		Rebalance(),
	)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.InDelta(t, 6000, res.Trades[0].Quantity, 1e-9)
	assert.InDelta(t, 2000, res.Trades[1].Quantity, 1e-9)
}

func TestWeighEqually_SplitsSelection(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2)}
	e := twoInstrumentEngine(dates,
		NewRunOnce(),
		SelectAll(),
		WeighEqually(),
		Rebalance(),
	)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.InDelta(t, 5000, res.Trades[0].Quantity, 1e-9, "50k at price 10")
	assert.InDelta(t, 2500, res.Trades[1].Quantity, 1e-9, "50k at price 20")
}

func TestWeighEqually_WithoutSelectionViolatesContract(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2)}
	e := twoInstrumentEngine(dates, WeighEqually())
	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, backtest.ErrMissingKey)
}

func TestSelectThese_LimitsUniverse(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2)}
	e := twoInstrumentEngine(dates,
		NewRunOnce(),
		SelectThese("B"),
		WeighEqually(),
		Rebalance(),
	)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, "root/B", res.Trades[0].Node)
	assert.InDelta(t, 5000, res.Trades[0].Quantity, 1e-9, "100k at price 20")
}

func TestWeighInvVol(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}

	feed := backtest.NewMemFeed()
	// A's step returns are +/-10%, B's +/-20%: B is twice as volatile,
	// so inverse-vol weights land at 2/3 vs 1/3.
	feed.SetPrices("A", backtest.Series{
		{Date: dates[0], Value: 100},
		{Date: dates[1], Value: 110},
		{Date: dates[2], Value: 99},
	})
	feed.SetPrices("B", backtest.Series{
		{Date: dates[0], Value: 100},
		{Date: dates[1], Value: 120},
		{Date: dates[2], Value: 96},
	})

	// The probe copies the computed weights into perm, which survives
	// the run, so the test can inspect them afterwards.
	probe := backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		v, err := s.State().GetTemp(backtest.KeyWeights)
		if err != nil {
			return false, err
		}
		s.State().SetPerm("test/weights", v)
		return true, nil
	})

	root := backtest.NewStrategy("root", SelectAll(), WeighInvVol(3), probe)
	root.AddChild(backtest.NewInstrument("A"))
	root.AddChild(backtest.NewInstrument("B"))
	e := &backtest.Engine{Root: root, Feed: feed, Dates: dates, InitialCapital: 100_000}

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	// Not enough history on the first two dates: the unit declines.
	assert.False(t, res.Snapshots[0].ChainRan)
	assert.False(t, res.Snapshots[1].ChainRan)
	assert.True(t, res.Snapshots[2].ChainRan)

	v, err := root.State().GetPerm("test/weights")
	require.NoError(t, err)
	weights := v.(map[string]float64)
	assert.InDelta(t, 2.0/3.0, weights["A"], 1e-9)
	assert.InDelta(t, 1.0/3.0, weights["B"], 1e-9)
}

func TestWeighInvVol_BadLookback(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2)}
	e := twoInstrumentEngine(dates, SelectAll(), WeighInvVol(1))
	_, err := e.Run(context.Background())
	assert.Error(t, err)
}
