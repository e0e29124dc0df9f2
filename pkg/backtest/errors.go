package backtest

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for a run. All of these are terminal for the date that
// raised them; the engine halts the run and keeps the snapshots of every
// date that already completed.
var (
	// ErrMissingKey marks a temp/perm read of a key no earlier unit wrote.
	ErrMissingKey = errors.New("missing state key")
	// ErrUnknownInstrument marks a target name with no price series in the feed.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrInvalidTarget marks a target the instrument's policy rejects.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrStalePrice marks a missing or stale price observation.
	ErrStalePrice = errors.New("stale or missing price")
	// ErrInvalidDateSequence marks duplicate or out-of-order run dates.
	ErrInvalidDateSequence = errors.New("invalid date sequence")
)

// MissingKeyError reports which node and scope a decision unit read a
// key from before any unit produced it. It unwraps to ErrMissingKey.
type MissingKeyError struct {
	Node  string
	Scope string // "temp" or "perm"
	Key   string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("backtest: node %s has no %s key %q", e.Node, e.Scope, e.Key)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

// RunError locates the failure that halted a run: the node that raised
// it and the date being stepped. The date is stamped by the engine when
// the error crosses the step boundary.
type RunError struct {
	Node string
	Date time.Time
	Err  error
}

func (e *RunError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("backtest: %v (node %s)", e.Err, e.Node)
	}
	return fmt.Sprintf("backtest: %v (node %s, date %s)", e.Err, e.Node, e.Date.Format("2006-01-02"))
}

func (e *RunError) Unwrap() error { return e.Err }

// stampRunError wraps err into a *RunError carrying date, preserving the
// node recorded at the raise site when there is one.
func stampRunError(err error, node string, date time.Time) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		if re.Date.IsZero() {
			re.Date = date
		}
		return re
	}
	return &RunError{Node: node, Date: date, Err: err}
}
