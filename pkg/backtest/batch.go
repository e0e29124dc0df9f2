package backtest

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/mr"
)

// RunSpec describes one run inside a batch. Build must construct a
// fresh engine (tree, feed and all) on every call: runs share no
// mutable state, which is the only parallelism the model permits.
type RunSpec struct {
	Name  string
	Build func() (*Engine, error)
}

// RunBatch executes independent backtests concurrently and returns
// their results keyed by run name. The first failing run cancels the
// batch. Within each run execution stays strictly sequential.
func RunBatch(ctx context.Context, specs []RunSpec) (map[string]*Result, error) {
	if len(specs) == 0 {
		return map[string]*Result{}, nil
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || spec.Build == nil {
			return nil, fmt.Errorf("backtest: batch spec needs a name and a builder")
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("backtest: duplicate batch run name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}

	type namedResult struct {
		name string
		res  *Result
	}

	return mr.MapReduce(
		func(source chan<- RunSpec) {
			for _, spec := range specs {
				source <- spec
			}
		},
		func(spec RunSpec, writer mr.Writer[namedResult], cancel func(error)) {
			engine, err := spec.Build()
			if err != nil {
				cancel(fmt.Errorf("backtest: batch run %s: %w", spec.Name, err))
				return
			}
			res, err := engine.Run(ctx)
			if err != nil {
				cancel(fmt.Errorf("backtest: batch run %s: %w", spec.Name, err))
				return
			}
			writer.Write(namedResult{name: spec.Name, res: res})
		},
		func(pipe <-chan namedResult, writer mr.Writer[map[string]*Result], cancel func(error)) {
			out := make(map[string]*Result, len(specs))
			for item := range pipe {
				out[item.name] = item.res
			}
			writer.Write(out)
		},
		mr.WithContext(ctx),
	)
}
