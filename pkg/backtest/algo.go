package backtest

// Algo is a single decision unit. Invoke receives the strategy node the
// chain is running against; it may read the whole subtree but is
// expected to mutate only that node's own temp/perm state. The boolean
// is a control signal for the enclosing combinator; an error is
// categorically distinct from false and always propagates.
type Algo interface {
	Invoke(s *Strategy) (bool, error)
}

// AlgoFunc adapts a plain function to the Algo contract, for stateless
// units that need no constructor-bound configuration.
type AlgoFunc func(*Strategy) (bool, error)

func (f AlgoFunc) Invoke(s *Strategy) (bool, error) { return f(s) }

// Stack runs its units in order with AND short-circuit semantics: the
// first false stops the stack and the units after it do not run. An
// empty stack returns true. A Stack is itself an Algo, so stacks nest
// to arbitrary depth.
type Stack struct {
	units []Algo
}

// NewStack builds a stack over the given units.
func NewStack(units ...Algo) *Stack { return &Stack{units: units} }

// Append adds units to the end of the stack.
func (st *Stack) Append(units ...Algo) { st.units = append(st.units, units...) }

func (st *Stack) Invoke(s *Strategy) (bool, error) {
	for _, u := range st.units {
		ok, err := u.Invoke(s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Or runs its alternatives in order and stops at the first true. An
// empty Or returns false. It is the branching primitive: gate each
// alternative with a leading "should I run today" unit and Or will fall
// through to the next branch when the gate declines.
type Or struct {
	alts []Algo
}

// NewOr builds an Or over the given alternatives.
func NewOr(alts ...Algo) *Or { return &Or{alts: alts} }

func (o *Or) Invoke(s *Strategy) (bool, error) {
	for _, a := range o.alts {
		ok, err := a.Invoke(s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
