// Package algos ships the stock decision units the engine's scenarios
// are built from: schedule gates, selection and weighing units, and the
// rebalance trigger. Each unit documents the temp/perm keys it reads
// and writes; nothing enforces those contracts beyond the run-time
// missing-key errors.
package algos

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"foliosim/pkg/backtest"
)

// RunOnce passes on its first invocation and declines forever after.
// Memory lives on the unit instance, so each placement in a chain gates
// independently.
type RunOnce struct {
	done bool
}

func NewRunOnce() *RunOnce { return &RunOnce{} }

func (r *RunOnce) Invoke(*backtest.Strategy) (bool, error) {
	if r.done {
		return false, nil
	}
	r.done = true
	return true, nil
}

// Schedule gates a branch on a cron expression: it passes when the
// schedule has a trigger inside the window since the unit last saw the
// node, and declines otherwise. The first observed date only arms the
// gate (no window exists yet to cross).
//
// Perm contract: writes the last observed date under its own key.
type Schedule struct {
	sched cron.Schedule
	key   string
}

// NewSchedule parses a standard five-field cron expression (descriptors
// like @monthly work too).
func NewSchedule(expr string) (*Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("algos: parse schedule %q: %w", expr, err)
	}
	return &Schedule{
		sched: sched,
		key:   "algos/schedule/" + expr,
	}, nil
}

// RunWeekly gates on week starts (Monday).
func RunWeekly() *Schedule { return mustSchedule("0 0 * * 1") }

// RunMonthly gates on month starts.
func RunMonthly() *Schedule { return mustSchedule("0 0 1 * *") }

func mustSchedule(expr string) *Schedule {
	g, err := NewSchedule(expr)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Schedule) Invoke(s *backtest.Strategy) (bool, error) {
	now := s.Now()
	state := s.State()
	if !state.HasPerm(g.key) {
		state.SetPerm(g.key, now)
		return false, nil
	}
	prevAny, err := state.GetPerm(g.key)
	if err != nil {
		return false, err
	}
	prev, ok := prevAny.(time.Time)
	if !ok {
		return false, fmt.Errorf("algos: perm %q is %T, want time.Time", g.key, prevAny)
	}
	state.SetPerm(g.key, now)
	next := g.sched.Next(prev)
	return !next.After(now), nil
}
