package algos

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"foliosim/pkg/backtest"
)

// WeighSpecified writes a fixed weight mapping to temp KeyWeights.
// Weights are fractions of the node's value; they need not sum to 1.0,
// the shortfall stays as cash.
func WeighSpecified(weights map[string]float64) backtest.Algo {
	fixed := make(map[string]float64, len(weights))
	for name, w := range weights {
		fixed[name] = w
	}
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		out := make(map[string]float64, len(fixed))
		for name, w := range fixed {
			out[name] = w
		}
		s.State().SetTemp(backtest.KeyWeights, out)
		return true, nil
	})
}

// WeighEqually splits weight evenly across the names in temp
// KeySelected. Reading an absent selection is a contract violation by
// the chain author and surfaces the missing-key error.
//
// Temp contract: reads KeySelected, writes KeyWeights.
func WeighEqually() backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		names, err := selectedNames(s)
		if err != nil {
			return false, err
		}
		if len(names) == 0 {
			return false, nil
		}
		w := 1.0 / float64(len(names))
		out := make(map[string]float64, len(names))
		for _, name := range names {
			out[name] = w
		}
		s.State().SetTemp(backtest.KeyWeights, out)
		return true, nil
	})
}

// WeighInvVol weighs the selected names inversely to the standard
// deviation of their step returns over the trailing lookback
// observations. Names without enough history (or with zero volatility)
// are dropped; when nothing survives the unit declines.
//
// Temp contract: reads KeySelected, writes KeyWeights.
func WeighInvVol(lookback int) backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		if lookback < 2 {
			return false, fmt.Errorf("algos: inv-vol lookback must be at least 2, got %d", lookback)
		}
		names, err := selectedNames(s)
		if err != nil {
			return false, err
		}
		inv := make(map[string]float64, len(names))
		var total float64
		for _, name := range names {
			series, ok := s.Feed().Series(name)
			if !ok {
				return false, &backtest.RunError{Node: s.FullName() + "/" + name, Err: backtest.ErrUnknownInstrument}
			}
			vol := trailingVol(series.Until(s.Now()).Values(), lookback)
			if vol <= 0 {
				continue
			}
			inv[name] = 1 / vol
			total += 1 / vol
		}
		if len(inv) == 0 || total == 0 {
			return false, nil
		}
		out := make(map[string]float64, len(inv))
		for name, v := range inv {
			out[name] = v / total
		}
		s.State().SetTemp(backtest.KeyWeights, out)
		return true, nil
	})
}

func selectedNames(s *backtest.Strategy) ([]string, error) {
	v, err := s.State().GetTemp(backtest.KeySelected)
	if err != nil {
		return nil, err
	}
	names, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("algos: temp %q is %T, want []string", backtest.KeySelected, v)
	}
	return names, nil
}

// trailingVol is the stddev of simple returns over the last lookback
// prices; zero when there is not enough history.
func trailingVol(prices []float64, lookback int) float64 {
	if len(prices) > lookback {
		prices = prices[len(prices)-lookback:]
	}
	if len(prices) < 2 {
		return 0
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		rets = append(rets, prices[i]/prices[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil)
}
