package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an instrumented unit that logs its invocation order.
type recorder struct {
	name string
	ret  bool
	err  error
	log  *[]string
}

func (r *recorder) Invoke(*Strategy) (bool, error) {
	*r.log = append(*r.log, r.name)
	return r.ret, r.err
}

func TestStack_ShortCircuitsOnFirstFalse(t *testing.T) {
	var log []string
	st := NewStack(
		&recorder{name: "a", ret: true, log: &log},
		&recorder{name: "b", ret: false, log: &log},
		&recorder{name: "c", ret: true, log: &log},
	)

	ok, err := st.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, log, "units after the first false must not run")
}

func TestStack_AllTrue(t *testing.T) {
	var log []string
	st := NewStack(
		&recorder{name: "a", ret: true, log: &log},
		&recorder{name: "b", ret: true, log: &log},
	)

	ok, err := st.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestStack_EmptyIsVacuouslyTrue(t *testing.T) {
	ok, err := NewStack().Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOr_StopsAtFirstTrue(t *testing.T) {
	var log []string
	or := NewOr(
		&recorder{name: "a", ret: false, log: &log},
		&recorder{name: "b", ret: true, log: &log},
		&recorder{name: "c", ret: true, log: &log},
	)

	ok, err := or.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, log, "alternatives after the first true must not run")
}

func TestOr_AllFalse(t *testing.T) {
	var log []string
	or := NewOr(
		&recorder{name: "a", ret: false, log: &log},
		&recorder{name: "b", ret: false, log: &log},
	)

	ok, err := or.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestOr_EmptyIsVacuouslyFalse(t *testing.T) {
	ok, err := NewOr().Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStack_NestsAsAlgo(t *testing.T) {
	var log []string
	inner := NewStack(
		&recorder{name: "inner1", ret: true, log: &log},
		&recorder{name: "inner2", ret: false, log: &log},
	)
	outer := NewStack(
		&recorder{name: "outer1", ret: true, log: &log},
		inner,
		&recorder{name: "outer2", ret: true, log: &log},
	)

	ok, err := outer.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.False(t, ok, "a nested stack's false stops the outer stack")
	assert.Equal(t, []string{"outer1", "inner1", "inner2"}, log)
}

func TestCombinators_ErrorIsNotFalse(t *testing.T) {
	boom := errors.New("boom")
	var log []string

	st := NewStack(
		&recorder{name: "a", ret: true, log: &log},
		&recorder{name: "b", ret: true, err: boom, log: &log},
		&recorder{name: "c", ret: true, log: &log},
	)
	_, err := st.Invoke(NewStrategy("s"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, log)

	log = nil
	or := NewOr(
		&recorder{name: "a", ret: false, err: boom, log: &log},
		&recorder{name: "b", ret: true, log: &log},
	)
	_, err = or.Invoke(NewStrategy("s"))
	assert.ErrorIs(t, err, boom, "Or must propagate errors instead of trying the next branch")
	assert.Equal(t, []string{"a"}, log)
}

func TestAlgoFunc_Adapts(t *testing.T) {
	called := false
	unit := AlgoFunc(func(*Strategy) (bool, error) {
		called = true
		return true, nil
	})
	ok, err := unit.Invoke(NewStrategy("s"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
}
