package backtest

import (
	"time"
)

// Strategy is an allocatable tree node: it owns ordered named children
// (instruments or nested strategies), uninvested cash, and the decision
// chain invoked against it. Its value is the sum of its children's
// values plus cash, refreshed bottom-up before any decision logic runs.
type Strategy struct {
	name   string
	parent *Strategy

	children map[string]Node
	order    []string

	cash   float64
	weight float64
	value  float64

	chain *Stack
	state *State

	// feed and now are bound by the engine during the bottom-up update
	// so decision units and the rebalancer see a consistent date.
	feed Feed
	now  time.Time

	lotDecimals int32

	// trades accumulates the run's fills at the root; sub-strategies
	// forward theirs upward and the engine drains per date.
	trades []Trade
}

// NewStrategy builds a strategy with the given decision chain. The root
// of a tree starts with weight 1.0; every other node's weight is
// assigned by its parent at rebalance time.
func NewStrategy(name string, chain ...Algo) *Strategy {
	return &Strategy{
		name:     name,
		children: make(map[string]Node),
		chain:    NewStack(chain...),
		state:    newState(name),
		weight:   1.0,
	}
}

func (s *Strategy) Name() string      { return s.name }
func (s *Strategy) FullName() string  { return fullName(s) }
func (s *Strategy) Parent() *Strategy { return s.parent }
func (s *Strategy) Value() float64    { return s.value }
func (s *Strategy) Weight() float64   { return s.weight }

// Cash is the node's uninvested capital, included in its value.
func (s *Strategy) Cash() float64 { return s.cash }

// State exposes the node's temp/perm store to its decision units.
func (s *Strategy) State() *State { return s.state }

// Now is the date of the current step, zero before the first update.
func (s *Strategy) Now() time.Time { return s.now }

// Feed is the data source bound to the running tree; decision units use
// it for lookback series and auxiliary data.
func (s *Strategy) Feed() Feed { return s.feed }

// AddChild attaches a node under its name. Re-adding an existing name
// replaces the node in place and keeps the original ordering slot;
// otherwise the child is appended, making insertion order the iteration
// and trade order.
func (s *Strategy) AddChild(n Node) {
	n.setParent(s)
	if _, exists := s.children[n.Name()]; !exists {
		s.order = append(s.order, n.Name())
	}
	s.children[n.Name()] = n
}

// Child returns the named child, nil when absent.
func (s *Strategy) Child(name string) Node { return s.children[name] }

// Children returns the children in insertion order.
func (s *Strategy) Children() []Node {
	out := make([]Node, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.children[name])
	}
	return out
}

// RunChain invokes the node's decision chain against itself. The engine
// calls this on the root each date; a parent's decision unit may call
// it on a child strategy to run nested logic.
func (s *Strategy) RunChain() (bool, error) {
	return s.chain.Invoke(s)
}

func (s *Strategy) setParent(p *Strategy) {
	s.parent = p
	if p != nil {
		s.weight = 0
	}
}

// update refreshes the subtree bottom-up for date: children first, then
// this node's value from theirs plus cash.
func (s *Strategy) update(date time.Time, feed Feed) error {
	s.feed = feed
	s.now = date
	total := s.cash
	for _, name := range s.order {
		child := s.children[name]
		if err := child.update(date, feed); err != nil {
			return err
		}
		total += child.Value()
	}
	s.value = total
	return nil
}

// refreshValues re-aggregates strategy values from current child state
// without touching prices. The engine runs it after the decision pass
// so snapshots see post-trade values.
func (s *Strategy) refreshValues() {
	total := s.cash
	for _, name := range s.order {
		if child, ok := s.children[name].(*Strategy); ok {
			child.refreshValues()
		}
		total += s.children[name].Value()
	}
	s.value = total
}

func (s *Strategy) clearTempAll() {
	s.state.ClearTemp()
	for _, name := range s.order {
		if child, ok := s.children[name].(*Strategy); ok {
			child.clearTempAll()
		}
	}
}

func (s *Strategy) setLotDecimals(d int32) {
	s.lotDecimals = d
	for _, name := range s.order {
		if child, ok := s.children[name].(*Strategy); ok {
			child.setLotDecimals(d)
		}
	}
}

// fund credits initial capital to the node's cash. The engine funds the
// root once at Initializing.
func (s *Strategy) fund(amount float64) {
	s.cash += amount
	s.value += amount
}

func (s *Strategy) root() *Strategy {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (s *Strategy) recordTrades(trades []Trade) {
	r := s.root()
	r.trades = append(r.trades, trades...)
}

func (s *Strategy) drainTrades() []Trade {
	out := s.trades
	s.trades = nil
	return out
}
