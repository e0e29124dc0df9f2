package backtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSpec_Build(t *testing.T) {
	spec := TreeSpec{
		Name:        "portfolio",
		Instruments: []string{"SPY", "TLT"},
		Children: []TreeSpec{
			{Name: "crypto", Instruments: []string{"BTC"}},
		},
	}

	root, err := spec.Build()
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 3)
	assert.Equal(t, "SPY", children[0].Name())
	assert.Equal(t, "TLT", children[1].Name())
	assert.Equal(t, "crypto", children[2].Name())

	crypto, ok := children[2].(*Strategy)
	require.True(t, ok)
	assert.Equal(t, "portfolio/crypto/BTC", crypto.Children()[0].FullName())
	assert.Same(t, root, crypto.Parent())
}

func TestTreeSpec_BuildRejectsBadNames(t *testing.T) {
	_, err := (&TreeSpec{Name: ""}).Build()
	assert.Error(t, err)

	_, err = (&TreeSpec{Name: "a/b"}).Build()
	assert.Error(t, err)

	_, err = (&TreeSpec{Name: "ok", Instruments: []string{" "}}).Build()
	assert.Error(t, err)
}

func TestTreeSpec_Attach(t *testing.T) {
	spec := TreeSpec{
		Name: "portfolio",
		Children: []TreeSpec{
			{Name: "crypto", Instruments: []string{"BTC"}},
		},
	}

	marker := AlgoFunc(func(*Strategy) (bool, error) { return false, nil })
	require.NoError(t, spec.Attach("portfolio/crypto", marker))
	assert.Len(t, spec.Children[0].Chain, 1)

	assert.Error(t, spec.Attach("portfolio/bonds", marker))
	assert.Error(t, spec.Attach("other", marker))
}

func TestLoadTreeSpecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	yaml := `name: portfolio
instruments: [SPY, TLT]
children:
  - name: crypto
    instruments: [BTC, ETH]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	spec, err := LoadTreeSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "portfolio", spec.Name)
	assert.Equal(t, []string{"SPY", "TLT"}, spec.Instruments)
	require.Len(t, spec.Children, 1)
	assert.Equal(t, []string{"BTC", "ETH"}, spec.Children[0].Instruments)

	_, err = LoadTreeSpecFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
