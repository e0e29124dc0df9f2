package backtest

import (
	"time"
)

// FixedIncome carries the execution attributes of coupon-bearing
// instruments. Spread is the full bid/offer spread in price units:
// buys execute at price + Spread/2, sells at price - Spread/2.
// CouponRate is the coupon accrued per held unit per observed date.
type FixedIncome struct {
	CouponRate float64
	Spread     float64
}

// InstrumentOption configures an Instrument at construction time.
type InstrumentOption func(*Instrument)

// WithFixedIncome marks the instrument as coupon-bearing with the given
// execution attributes.
func WithFixedIncome(fi FixedIncome) InstrumentOption {
	return func(i *Instrument) {
		cp := fi
		i.fixed = &cp
	}
}

// WithNoShort forbids negative target values for this instrument; the
// rebalancer rejects them with ErrInvalidTarget.
func WithNoShort() InstrumentOption {
	return func(i *Instrument) { i.noShort = true }
}

// Instrument is a leaf node holding a signed position in one tradeable
// series. Its price follows the feed; its quantity changes only through
// the owning strategy's rebalances.
type Instrument struct {
	name   string
	parent *Strategy

	price    float64
	quantity float64
	value    float64

	// priced marks that at least one real observation was applied;
	// date is the date of the freshest observation.
	priced bool
	date   time.Time

	fixed   *FixedIncome
	noShort bool

	// pendingCoupon accumulates accrued coupons until the rebalancer
	// pays them out to the parent's cash.
	pendingCoupon float64
}

// NewInstrument builds a detached leaf for the named price series.
func NewInstrument(name string, opts ...InstrumentOption) *Instrument {
	i := &Instrument{name: name}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Instrument) Name() string      { return i.name }
func (i *Instrument) FullName() string  { return fullName(i) }
func (i *Instrument) Parent() *Strategy { return i.parent }
func (i *Instrument) Value() float64    { return i.value }

// Price is the freshest observed price, zero before the first observation.
func (i *Instrument) Price() float64 { return i.price }

// Quantity is the held size; negative means short.
func (i *Instrument) Quantity() float64 { return i.quantity }

// Weight is the instrument's share of its parent's value as of the last
// aggregation pass.
func (i *Instrument) Weight() float64 {
	if i.parent == nil || i.parent.Value() == 0 {
		return 0
	}
	return i.value / i.parent.Value()
}

func (i *Instrument) setParent(p *Strategy) { i.parent = p }

// update applies the date's price observation. A missing observation is
// fatal only for a held position; a flat leaf keeps its last known
// price so a not-yet-listed instrument can sit in the tree until it is
// first targeted.
func (i *Instrument) update(date time.Time, feed Feed) error {
	px, ok := feed.PriceAt(i.name, date)
	if !ok {
		if i.quantity != 0 {
			return &RunError{Node: i.FullName(), Err: ErrStalePrice}
		}
		i.value = 0
		return nil
	}
	i.price = px
	i.priced = true
	i.date = date
	i.value = i.price * i.quantity
	if i.fixed != nil && i.quantity != 0 {
		i.pendingCoupon += i.fixed.CouponRate * i.quantity
	}
	return nil
}

// execPrice is the effective fill price for a buy or sell, with the
// bid/offer spread applied for fixed-income instruments.
func (i *Instrument) execPrice(buy bool) float64 {
	if i.fixed == nil || i.fixed.Spread == 0 {
		return i.price
	}
	if buy {
		return i.price + i.fixed.Spread/2
	}
	return i.price - i.fixed.Spread/2
}

// pricedAt reports whether the instrument has a usable observation for date.
func (i *Instrument) pricedAt(date time.Time) bool {
	return i.priced && i.date.Equal(date)
}
