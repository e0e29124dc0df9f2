package algos

import (
	"foliosim/pkg/backtest"
)

// Rebalance executes the node's target mapping through the core
// rebalancer and passes when the trades (possibly none) applied
// cleanly.
//
// Temp contract: reads KeyWeights and/or KeyTargets.
func Rebalance() backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		if _, err := s.Rebalance(); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RunChildren invokes each child strategy's own chain in insertion
// order, letting nested strategies run their decision logic after the
// parent has allocated to them. A child chain's false result does not
// stop the sweep; errors propagate.
func RunChildren() backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		for _, child := range s.Children() {
			sub, ok := child.(*backtest.Strategy)
			if !ok {
				continue
			}
			if _, err := sub.RunChain(); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}
