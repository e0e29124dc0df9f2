package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const defaultInitialCapital = 1_000_000.0

// Engine drives a single run: it validates the date sequence, funds the
// root, and steps the clock. Each date fully completes (bottom-up
// aggregation, temp reset, decision pass, snapshot) before the next
// starts; nothing is shared between concurrent runs.
type Engine struct {
	Root *Strategy
	Feed Feed
	// Dates is the ordered run sequence; duplicates or out-of-order
	// entries fail with ErrInvalidDateSequence.
	Dates []time.Time

	// InitialCapital funds the root at Initializing; defaults to 1e6.
	InitialCapital float64
	// LotDecimals is the quantity rounding precision for the
	// rebalancer; defaults to 8 decimal places.
	LotDecimals int32

	started bool
}

// Run executes the backtest. On a halting error it returns the partial
// result, with every completed date's snapshot intact, alongside a
// *RunError locating the failure. Cancellation via ctx is checked once
// per date, before any of that date's mutations, so an abort never
// leaves partial-day writes.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.Root == nil || e.Feed == nil {
		return nil, fmt.Errorf("backtest: engine not fully configured")
	}
	if e.started {
		return nil, fmt.Errorf("backtest: engine already ran; build a fresh tree per run")
	}
	if err := validateDates(e.Dates); err != nil {
		return nil, err
	}
	e.started = true

	capital := e.InitialCapital
	if capital <= 0 {
		capital = defaultInitialCapital
	}
	e.Root.setLotDecimals(e.LotDecimals)
	e.Root.fund(capital)
	e.Root.weight = 1.0

	logx.WithContext(ctx).Infof("backtest: run start root=%s dates=%d capital=%.2f",
		e.Root.Name(), len(e.Dates), capital)

	res := &Result{InitialCapital: capital}
	for _, date := range e.Dates {
		if err := ctx.Err(); err != nil {
			res.finalize()
			return res, err
		}
		if err := e.step(date, res); err != nil {
			re := stampRunError(err, e.Root.FullName(), date)
			res.Halt = &HaltInfo{Node: re.Node, Date: re.Date, Reason: re.Err.Error()}
			res.finalize()
			logx.WithContext(ctx).Errorf("backtest: run halted node=%s date=%s err=%v",
				re.Node, re.Date.Format("2006-01-02"), re.Err)
			return res, re
		}
		res.LastCompleted = date
	}
	res.finalize()
	logx.WithContext(ctx).Infof("backtest: run done steps=%d trades=%d final=%.2f",
		len(res.Snapshots), len(res.Trades), e.Root.Value())
	return res, nil
}

// step runs one date: prices and values bottom-up, temp reset, root
// decision pass, then the snapshot. The chain's false result is
// recorded, never treated as a failure.
func (e *Engine) step(date time.Time, res *Result) error {
	if err := e.Root.update(date, e.Feed); err != nil {
		return err
	}
	e.Root.clearTempAll()
	ran, err := e.Root.RunChain()
	if err != nil {
		return err
	}
	e.Root.refreshValues()
	res.Trades = append(res.Trades, e.Root.drainTrades()...)
	res.Snapshots = append(res.Snapshots, snapshotTree(date, ran, e.Root))
	return nil
}

func validateDates(dates []time.Time) error {
	if len(dates) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidDateSequence)
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("%w: %s does not follow %s",
				ErrInvalidDateSequence,
				dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
	}
	return nil
}
