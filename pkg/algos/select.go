package algos

import (
	"foliosim/pkg/backtest"
)

// SelectAll writes every current child name, in insertion order, to
// temp KeySelected.
func SelectAll() backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		children := s.Children()
		names := make([]string, 0, len(children))
		for _, child := range children {
			names = append(names, child.Name())
		}
		s.State().SetTemp(backtest.KeySelected, names)
		return true, nil
	})
}

// SelectThese writes a fixed name list to temp KeySelected. The names
// need not exist as children yet; the rebalancer opens positions for
// any it is later told to weigh.
func SelectThese(names ...string) backtest.Algo {
	fixed := append([]string(nil), names...)
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		s.State().SetTemp(backtest.KeySelected, append([]string(nil), fixed...))
		return true, nil
	})
}
