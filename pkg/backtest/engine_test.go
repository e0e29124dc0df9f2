package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onceGate fires on its first invocation only, keeping the engine tests
// independent of the stock unit library.
type onceGate struct{ done bool }

func (g *onceGate) Invoke(*Strategy) (bool, error) {
	if g.done {
		return false, nil
	}
	g.done = true
	return true, nil
}

func weighAndRebalance(weights map[string]float64) []Algo {
	return []Algo{
		AlgoFunc(func(s *Strategy) (bool, error) {
			s.State().SetTemp(KeyWeights, weights)
			return true, nil
		}),
		AlgoFunc(func(s *Strategy) (bool, error) {
			_, err := s.Rebalance()
			return err == nil, err
		}),
	}
}

func threeFlatDates() []time.Time {
	return []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}
}

func buyAndHoldEngine() *Engine {
	dates := threeFlatDates()
	feed := flatFeed(map[string]float64{"A": 10, "B": 20}, dates...)
	chain := append([]Algo{&onceGate{}}, weighAndRebalance(map[string]float64{"A": 0.6, "B": 0.4})...)
	root := NewStrategy("root", chain...)
	root.AddChild(NewInstrument("A"))
	root.AddChild(NewInstrument("B"))
	return &Engine{Root: root, Feed: feed, Dates: dates, InitialCapital: 100_000}
}

func TestEngine_BuyAndHoldScenario(t *testing.T) {
	res, err := buyAndHoldEngine().Run(context.Background())
	require.NoError(t, err)

	// Positions set once on date one, then held through flat prices.
	require.Len(t, res.Trades, 2)
	for _, tr := range res.Trades {
		assert.Equal(t, day(2024, 1, 2), tr.Date)
	}
	assert.InDelta(t, 6000, res.Trades[0].Quantity, 1e-9)
	assert.InDelta(t, 2000, res.Trades[1].Quantity, 1e-9)

	require.Len(t, res.Snapshots, 3)
	for i, snap := range res.Snapshots {
		assert.InDelta(t, 100_000, snap.Nodes[0].Value, 1e-9, "date %d", i)
	}
	assert.True(t, res.Snapshots[0].ChainRan)
	assert.False(t, res.Snapshots[1].ChainRan, "the gate declines after date one")
	assert.Equal(t, day(2024, 1, 4), res.LastCompleted)
	assert.InDelta(t, 0, res.TotalReturnPct, 1e-9)
}

func TestEngine_SnapshotShape(t *testing.T) {
	res, err := buyAndHoldEngine().Run(context.Background())
	require.NoError(t, err)

	nodes := res.Snapshots[2].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, "root", nodes[0].Path)
	assert.Equal(t, "root/A", nodes[1].Path)
	assert.Equal(t, "root/B", nodes[2].Path)
	require.NotNil(t, nodes[1].Qty)
	assert.InDelta(t, 6000, *nodes[1].Qty, 1e-9)
	assert.Nil(t, nodes[0].Qty, "strategies carry no quantity")
	assert.InDelta(t, 1.0, nodes[0].Weight, 1e-9, "root weight is fixed at 1.0")
	assert.InDelta(t, 0.6, nodes[1].Weight, 1e-9)
}

func TestEngine_Deterministic(t *testing.T) {
	res1, err := buyAndHoldEngine().Run(context.Background())
	require.NoError(t, err)
	res2, err := buyAndHoldEngine().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, res1.Trades, res2.Trades)
	assert.Equal(t, res1.Snapshots, res2.Snapshots)
	assert.Equal(t, res1.EquityCurve, res2.EquityCurve)
}

func TestEngine_InvalidDateSequence(t *testing.T) {
	dup := []time.Time{day(2024, 1, 2), day(2024, 1, 2)}
	e := buyAndHoldEngine()
	e.Dates = dup
	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDateSequence)

	e = buyAndHoldEngine()
	e.Dates = []time.Time{day(2024, 1, 3), day(2024, 1, 2)}
	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDateSequence)
}

func TestEngine_RunsOnlyOnce(t *testing.T) {
	e := buyAndHoldEngine()
	_, err := e.Run(context.Background())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	assert.Error(t, err)
}

func TestEngine_HaltPreservesCompletedDates(t *testing.T) {
	dates := threeFlatDates()
	feed := NewMemFeed()
	// A goes dark on the third date while held.
	feed.SetPrices("A", Series{
		{Date: dates[0], Value: 10},
		{Date: dates[1], Value: 10},
	})
	chain := append([]Algo{&onceGate{}}, weighAndRebalance(map[string]float64{"A": 1.0})...)
	root := NewStrategy("root", chain...)
	root.AddChild(NewInstrument("A"))

	e := &Engine{Root: root, Feed: feed, Dates: dates, InitialCapital: 100_000}
	res, err := e.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStalePrice)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "root/A", re.Node)
	assert.Equal(t, dates[2], re.Date)

	require.NotNil(t, res)
	assert.Len(t, res.Snapshots, 2, "completed dates survive the halt")
	assert.Equal(t, dates[1], res.LastCompleted)
	require.NotNil(t, res.Halt)
	assert.Equal(t, "root/A", res.Halt.Node)
}

func TestEngine_AbortBetweenDates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	dates := threeFlatDates()
	feed := flatFeed(map[string]float64{"A": 10}, dates...)
	// Cancel during the first date's decision pass: the date still
	// completes; the next date never starts.
	chain := []Algo{AlgoFunc(func(*Strategy) (bool, error) {
		cancel()
		return true, nil
	})}
	root := NewStrategy("root", chain...)
	root.AddChild(NewInstrument("A"))

	e := &Engine{Root: root, Feed: feed, Dates: dates, InitialCapital: 100_000}
	res, err := e.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Snapshots, 1)
	assert.Equal(t, dates[0], res.LastCompleted)
}

func TestEngine_ChainErrorCarriesLocation(t *testing.T) {
	dates := threeFlatDates()
	feed := flatFeed(map[string]float64{"A": 10}, dates...)
	chain := []Algo{AlgoFunc(func(s *Strategy) (bool, error) {
		_, err := s.State().GetTemp("never-written")
		return false, err
	})}
	root := NewStrategy("root", chain...)
	root.AddChild(NewInstrument("A"))

	e := &Engine{Root: root, Feed: feed, Dates: dates}
	res, err := e.Run(context.Background())

	assert.ErrorIs(t, err, ErrMissingKey)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, dates[0], re.Date)
	require.NotNil(t, res.Halt)
	assert.Empty(t, res.Snapshots)
}
