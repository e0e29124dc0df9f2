package backtest

import "time"

// Well-known temp keys shared between decision units and the
// rebalancer. The contract around them is conventional, not enforced.
const (
	// KeySelected holds []string: the child names a selection unit picked.
	KeySelected = "selected"
	// KeyWeights holds map[string]float64: fractions of the node's value
	// to allocate per child name.
	KeyWeights = "weights"
	// KeyTargets holds map[string]float64: absolute target values per
	// child name. A name present here overrides its weight entry.
	KeyTargets = "targets"
)

// Node is a member of the allocation tree: either an Instrument leaf or
// a Strategy owning children of its own. Nodes are built once at setup,
// attached to exactly one parent, and never re-parented.
type Node interface {
	// Name is the node's own name, unique among its siblings.
	Name() string
	// FullName is the slash-joined path from the root.
	FullName() string
	// Parent is a weak back-reference used for aggregation and path
	// reporting only; nil at the root.
	Parent() *Strategy
	// Value is the node's market value: price x quantity for leaves,
	// children plus uninvested cash for strategies.
	Value() float64
	// Weight is the fraction of the parent's value last assigned to
	// this node; the root is always 1.0.
	Weight() float64

	setParent(p *Strategy)
	update(date time.Time, feed Feed) error
}

func fullName(n Node) string {
	if p := n.Parent(); p != nil {
		return p.FullName() + "/" + n.Name()
	}
	return n.Name()
}
