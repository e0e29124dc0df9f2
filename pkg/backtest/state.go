package backtest

// State is the per-node scratch store decision units share. It carries
// two scopes: temp entries live for a single date's decision pass and
// are dropped by the engine before the next pass; perm entries live for
// the whole run and belong to whichever unit writes them.
//
// The engine never pre-populates application keys and never validates
// that one unit's reads match another unit's writes; a read of an
// absent key surfaces as a *MissingKeyError at run time.
type State struct {
	node string
	temp map[string]any
	perm map[string]any
}

func newState(node string) *State {
	return &State{
		node: node,
		temp: make(map[string]any),
		perm: make(map[string]any),
	}
}

// SetTemp stores a value for the remainder of the current date's pass.
func (s *State) SetTemp(key string, value any) { s.temp[key] = value }

// HasTemp reports whether key is present in the temp scope.
func (s *State) HasTemp(key string) bool {
	_, ok := s.temp[key]
	return ok
}

// GetTemp returns the temp value for key, or a *MissingKeyError when no
// unit has written it during the current pass.
func (s *State) GetTemp(key string) (any, error) {
	v, ok := s.temp[key]
	if !ok {
		return nil, &MissingKeyError{Node: s.node, Scope: "temp", Key: key}
	}
	return v, nil
}

// SetPerm stores a value for the node's whole lifetime.
func (s *State) SetPerm(key string, value any) { s.perm[key] = value }

// HasPerm reports whether key is present in the perm scope.
func (s *State) HasPerm(key string) bool {
	_, ok := s.perm[key]
	return ok
}

// GetPerm returns the perm value for key, or a *MissingKeyError.
func (s *State) GetPerm(key string) (any, error) {
	v, ok := s.perm[key]
	if !ok {
		return nil, &MissingKeyError{Node: s.node, Scope: "perm", Key: key}
	}
	return v, nil
}

// ClearTemp drops every temp entry and leaves perm untouched. The
// engine calls it exactly once per node per date, before that node's
// decision chain runs.
func (s *State) ClearTemp() {
	clear(s.temp)
}
