package algos

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"foliosim/pkg/backtest"
)

// LogValues reports the node's subtree values through logx and always
// passes, so it can sit anywhere in a chain as a probe.
func LogValues() backtest.Algo {
	return backtest.AlgoFunc(func(s *backtest.Strategy) (bool, error) {
		logger := logx.WithContext(context.Background())
		date := s.Now().Format("2006-01-02")
		logger.Infof("algos: %s %s value=%.2f cash=%.2f", date, s.FullName(), s.Value(), s.Cash())
		for _, child := range s.Children() {
			logger.Infof("algos: %s %s value=%.2f weight=%.4f", date, child.FullName(), child.Value(), child.Weight())
		}
		return true, nil
	})
}
