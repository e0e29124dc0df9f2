// Package confkit holds the small configuration helpers shared by the
// runner: path resolution relative to the main config file, typed
// section files, and one-shot dotenv bootstrap.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and resolves it
// against base when relative.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// LoadFile loads a config file into T through go-zero's conf loader,
// optionally expanding ${ENV} references.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("confkit: load %s: %w", path, err)
	}
	return &cfg, nil
}

// Section is a config block that may live inline or in its own file
// next to the main config. Hydrate fills Value from File when set and
// leaves an inline Value alone.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads the section's file, resolved against base, into Value.
// A section with neither File nor inline Value stays nil.
func (s *Section[T]) Hydrate(base string) error {
	if s.File == "" {
		return nil
	}
	v, err := LoadFile[T](ResolvePath(base, s.File), true)
	if err != nil {
		return err
	}
	s.Value = v
	return nil
}

// IsSet reports whether the section carries a value after hydration.
func (s *Section[T]) IsSet() bool { return s != nil && s.Value != nil }
