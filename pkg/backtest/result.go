package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// NodeSnapshot captures one node's end-of-date status.
type NodeSnapshot struct {
	Path   string   `json:"path"`
	Value  float64  `json:"value"`
	Weight float64  `json:"weight"`
	Price  *float64 `json:"price,omitempty"`    // leaves only
	Qty    *float64 `json:"quantity,omitempty"` // leaves only
}

// DateSnapshot is the full-tree snapshot recorded after one date's
// decision pass.
type DateSnapshot struct {
	Date time.Time `json:"date"`
	// ChainRan is the root chain's boolean result; false means no
	// branch executed its logic that date, which is not an error.
	ChainRan bool           `json:"chain_ran"`
	Nodes    []NodeSnapshot `json:"nodes"`
}

// HaltInfo is the serializable location of a halting error.
type HaltInfo struct {
	Node   string    `json:"node"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// Result accumulates a run's history: one snapshot per completed date,
// the full trade log, and summary statistics over the root's equity
// curve. After a halt the snapshots of completed dates survive and
// Halt locates the failure.
type Result struct {
	InitialCapital float64        `json:"initial_capital"`
	Snapshots      []DateSnapshot `json:"snapshots"`
	Trades         []Trade        `json:"trades"`
	LastCompleted  time.Time      `json:"last_completed"`
	Halt           *HaltInfo      `json:"halt,omitempty"`

	EquityCurve    []float64 `json:"equity_curve"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	Sharpe         float64   `json:"sharpe"`
}

// snapshotTree records value/weight for every node and price/quantity
// for leaves, in deterministic pre-order.
func snapshotTree(date time.Time, ran bool, root *Strategy) DateSnapshot {
	snap := DateSnapshot{Date: date, ChainRan: ran}
	var walk func(n Node)
	walk = func(n Node) {
		ns := NodeSnapshot{Path: n.FullName(), Value: n.Value(), Weight: n.Weight()}
		if inst, ok := n.(*Instrument); ok {
			px, qty := inst.Price(), inst.Quantity()
			ns.Price, ns.Qty = &px, &qty
		}
		snap.Nodes = append(snap.Nodes, ns)
		if s, ok := n.(*Strategy); ok {
			for _, child := range s.Children() {
				walk(child)
			}
		}
	}
	walk(root)
	return snap
}

// finalize fills the equity curve and summary statistics from the
// recorded snapshots. Safe to call on a partial result.
func (r *Result) finalize() {
	r.EquityCurve = r.EquityCurve[:0]
	for _, snap := range r.Snapshots {
		if len(snap.Nodes) > 0 {
			r.EquityCurve = append(r.EquityCurve, snap.Nodes[0].Value)
		}
	}
	if len(r.EquityCurve) == 0 || r.InitialCapital == 0 {
		return
	}
	last := r.EquityCurve[len(r.EquityCurve)-1]
	r.TotalReturnPct = (last/r.InitialCapital - 1) * 100
	r.MaxDrawdownPct = maxDrawdownPct(append([]float64{r.InitialCapital}, r.EquityCurve...))
	r.Sharpe = sharpe(r.EquityCurve)
}

func maxDrawdownPct(series []float64) float64 {
	peak := series[0]
	mdd := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > mdd {
			mdd = dd
		}
	}
	return mdd * 100
}

// sharpe is the annualization-free ratio of mean step return to its
// standard deviation over the run.
func sharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		rets = append(rets, equity[i]/equity[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}
	mean, sd := stat.MeanStdDev(rets, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean / sd * math.Sqrt(float64(len(rets)))
}
