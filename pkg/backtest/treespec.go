package backtest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TreeSpec is the static description a tree is built from at
// Initializing: node names, instrument leaves, nested sub-strategies,
// and each node's decision chain. The structural part round-trips
// through YAML; chains are code and are attached in-process, either at
// construction or by path via Attach.
type TreeSpec struct {
	Name        string     `yaml:"name"`
	Instruments []string   `yaml:"instruments,omitempty"`
	Children    []TreeSpec `yaml:"children,omitempty"`
	Chain       []Algo     `yaml:"-"`
}

// LoadTreeSpecFile reads the YAML form of a tree description.
func LoadTreeSpecFile(path string) (*TreeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec TreeSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("backtest: parse tree spec %s: %w", path, err)
	}
	return &spec, nil
}

// Attach sets the decision chain of the node at the slash-joined path
// (the root's name is the first element).
func (t *TreeSpec) Attach(path string, units ...Algo) error {
	parts := strings.Split(path, "/")
	node := t
	if parts[0] != t.Name {
		return fmt.Errorf("backtest: tree spec has no node %q", path)
	}
	for _, part := range parts[1:] {
		var next *TreeSpec
		for i := range node.Children {
			if node.Children[i].Name == part {
				next = &node.Children[i]
				break
			}
		}
		if next == nil {
			return fmt.Errorf("backtest: tree spec has no node %q", path)
		}
		node = next
	}
	node.Chain = units
	return nil
}

// Build wires the description into a live tree. Sibling names collide
// by replacement, matching AddChild semantics.
func (t *TreeSpec) Build() (*Strategy, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("backtest: tree spec node needs a name")
	}
	if strings.Contains(t.Name, "/") {
		return nil, fmt.Errorf("backtest: tree spec name %q may not contain '/'", t.Name)
	}
	s := NewStrategy(t.Name, t.Chain...)
	for _, inst := range t.Instruments {
		if strings.TrimSpace(inst) == "" {
			return nil, fmt.Errorf("backtest: tree spec %s has an empty instrument name", t.Name)
		}
		s.AddChild(NewInstrument(inst))
	}
	for i := range t.Children {
		child, err := t.Children[i].Build()
		if err != nil {
			return nil, err
		}
		s.AddChild(child)
	}
	return s, nil
}
