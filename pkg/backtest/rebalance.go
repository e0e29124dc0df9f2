package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const defaultLotDecimals = 8

// Trade records one executed instrument fill.
type Trade struct {
	Date       time.Time `json:"date"`
	Node       string    `json:"node"` // full path of the instrument
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"` // executed price, spread included
	SpreadCost float64   `json:"spread_cost,omitempty"`
	CouponPaid float64   `json:"coupon_paid,omitempty"`
}

// Rebalance converts the target mapping in this node's temp state into
// executed trades against current positions.
//
// Targets come from KeyWeights (fractions of this node's current value)
// and/or KeyTargets (absolute values; a name present in both takes its
// absolute value). Every existing child absent from the mapping gets an
// implicit target of zero. Names absent from the children are opened as
// new instrument positions first. Children trade in stored insertion
// order, then new names in sorted order, so identical inputs reproduce
// identical trade logs. Residual unallocated value stays as cash.
//
// Invoking Rebalance with neither key present is a contract violation
// by the calling unit and returns the temp store's *MissingKeyError.
func (s *Strategy) Rebalance() ([]Trade, error) {
	targets, err := s.resolveTargets()
	if err != nil {
		return nil, err
	}
	total := s.value

	var trades []Trade
	for _, name := range s.tradeOrder(targets) {
		target := targets[name] // implicit zero when absent
		child := s.children[name]
		if child == nil {
			if target == 0 {
				continue
			}
			child, err = s.openPosition(name)
			if err != nil {
				return nil, err
			}
		}
		switch c := child.(type) {
		case *Strategy:
			s.allocate(c, target, total)
		case *Instrument:
			tr, err := s.tradeInstrument(c, target)
			if err != nil {
				return nil, err
			}
			if tr != nil {
				trades = append(trades, *tr)
			}
		}
	}

	s.refreshValues()
	s.recordTrades(trades)
	return trades, nil
}

// resolveTargets merges the weight and absolute-value mappings into
// absolute target values per child name.
func (s *Strategy) resolveTargets() (map[string]float64, error) {
	hasWeights := s.state.HasTemp(KeyWeights)
	hasTargets := s.state.HasTemp(KeyTargets)
	if !hasWeights && !hasTargets {
		_, err := s.state.GetTemp(KeyWeights)
		return nil, err
	}

	out := make(map[string]float64)
	if hasWeights {
		v, _ := s.state.GetTemp(KeyWeights)
		weights, ok := v.(map[string]float64)
		if !ok {
			return nil, &RunError{Node: s.FullName(), Err: fmt.Errorf("%w: temp %q is %T, want map[string]float64", ErrInvalidTarget, KeyWeights, v)}
		}
		for name, w := range weights {
			out[name] = w * s.value
		}
	}
	if hasTargets {
		v, _ := s.state.GetTemp(KeyTargets)
		targets, ok := v.(map[string]float64)
		if !ok {
			return nil, &RunError{Node: s.FullName(), Err: fmt.Errorf("%w: temp %q is %T, want map[string]float64", ErrInvalidTarget, KeyTargets, v)}
		}
		for name, tv := range targets {
			out[name] = tv
		}
	}
	return out, nil
}

// tradeOrder is the deterministic processing order: existing children
// in insertion order, then target names with no child yet in sorted order.
func (s *Strategy) tradeOrder(targets map[string]float64) []string {
	order := make([]string, 0, len(s.order)+len(targets))
	order = append(order, s.order...)
	var created []string
	for name := range targets {
		if _, ok := s.children[name]; !ok {
			created = append(created, name)
		}
	}
	sort.Strings(created)
	return append(order, created...)
}

// openPosition attaches a fresh instrument for a target name the node
// does not hold yet and prices it for the current date.
func (s *Strategy) openPosition(name string) (Node, error) {
	if s.feed == nil || !s.feed.HasInstrument(name) {
		return nil, &RunError{Node: s.FullName() + "/" + name, Err: ErrUnknownInstrument}
	}
	inst := NewInstrument(name)
	s.AddChild(inst)
	if err := inst.update(s.now, s.feed); err != nil {
		return nil, err
	}
	return inst, nil
}

// allocate moves capital between this node's cash and a child
// strategy's cash; nested strategies invest through their own chains.
func (s *Strategy) allocate(c *Strategy, target, total float64) {
	delta := target - c.value
	if delta == 0 {
		return
	}
	c.cash += delta
	c.value += delta
	s.cash -= delta
	c.weight = assignedWeight(target, total)
}

func (s *Strategy) tradeInstrument(c *Instrument, target float64) (*Trade, error) {
	if target < 0 && c.noShort {
		return nil, &RunError{Node: c.FullName(), Err: fmt.Errorf("%w: %s does not allow short targets", ErrInvalidTarget, c.Name())}
	}

	var qty float64
	fullClose := target == 0 && c.quantity != 0
	if fullClose {
		// Close exactly to flat, bypassing rounding.
		qty = -c.quantity
	} else {
		delta := target - c.value
		if delta == 0 {
			return nil, nil
		}
		if !c.pricedAt(s.now) {
			return nil, &RunError{Node: c.FullName(), Err: ErrStalePrice}
		}
		if c.price <= 0 {
			return nil, &RunError{Node: c.FullName(), Err: fmt.Errorf("%w: non-positive price %v", ErrStalePrice, c.price)}
		}
		qty = roundTowardZero(delta/c.price, s.lotDecimalsOrDefault())
		if qty == 0 {
			return nil, nil
		}
		// A raw target on the current side never flips the position:
		// crossing zero without an explicit opposite-sign target clamps
		// to a single close to flat.
		if crossesZero(c.quantity, qty) && sameSign(target, c.value) {
			qty = -c.quantity
		}
	}
	if qty == 0 {
		return nil, nil
	}

	if !c.pricedAt(s.now) {
		return nil, &RunError{Node: c.FullName(), Err: ErrStalePrice}
	}

	buy := qty > 0
	exec := c.execPrice(buy)
	var spreadCost float64
	if c.fixed != nil {
		spreadCost = math.Abs(qty) * c.fixed.Spread / 2
	}

	var couponPaid float64
	if c.quantity+qty == 0 && c.pendingCoupon != 0 {
		// Accrued coupons settle before a position closes fully.
		couponPaid = c.pendingCoupon
		c.pendingCoupon = 0
	}

	c.quantity += qty
	c.value = c.price * c.quantity
	s.cash -= qty * exec
	s.cash += couponPaid

	return &Trade{
		Date:       s.now,
		Node:       c.FullName(),
		Quantity:   qty,
		Price:      exec,
		SpreadCost: spreadCost,
		CouponPaid: couponPaid,
	}, nil
}

func (s *Strategy) lotDecimalsOrDefault() int32 {
	if s.lotDecimals > 0 {
		return s.lotDecimals
	}
	return defaultLotDecimals
}

// roundTowardZero quantizes a quantity to places decimal places without
// ever growing its magnitude, so rounding can not overshoot a target.
func roundTowardZero(qty float64, places int32) float64 {
	d := decimal.NewFromFloat(qty)
	truncated := d.Truncate(places)
	f, _ := truncated.Float64()
	return f
}

func crossesZero(current, delta float64) bool {
	next := current + delta
	return (current > 0 && next < 0) || (current < 0 && next > 0)
}

func sameSign(a, b float64) bool {
	return (a >= 0 && b >= 0) || (a <= 0 && b <= 0)
}

func assignedWeight(target, total float64) float64 {
	if total == 0 {
		return 0
	}
	return target / total
}
