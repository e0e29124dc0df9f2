package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/conf"

	"foliosim/pkg/confkit"
	"foliosim/pkg/report"
)

// RebalanceConf describes the stock decision chain the runner attaches
// to the root: a schedule gate, a weight mapping (equal weight across
// all instruments when empty), and the rebalance step.
type RebalanceConf struct {
	// Schedule is a cron expression gating rebalances (e.g. @monthly,
	// "0 0 * * 1").
	Schedule string `json:",default=@monthly"`
	// Weights maps instrument names to fractions of portfolio value.
	Weights map[string]float64 `json:",optional"`
}

// OutputConf controls the optional report written after a run.
type OutputConf struct {
	Dir    string `json:",default=reports"`
	Format string `json:",default=json"` // json | msgpack
}

// Config is the runner's top-level configuration.
type Config struct {
	// Env indicates the running environment: test | dev | prod.
	Env string `json:",default=test"`
	// Name labels the run in logs and report file names.
	Name string `json:",default=backtest"`

	InitialCapital float64 `json:",default=1000000"`
	// LotDecimals is the rebalancer's quantity rounding precision.
	LotDecimals int `json:",default=8"`

	// TreeFile is the YAML tree description; PricesFile the wide price
	// CSV. Both resolve relative to this config file.
	TreeFile   string
	PricesFile string

	Rebalance confkit.Section[RebalanceConf] `json:",optional"`
	Output    OutputConf                     `json:",optional"`

	mainPath string
	baseDir  string
}

// MustLoad is Load or panic, for main functions.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, validates and hydrates the runner configuration.
func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Rebalance.Hydrate(cfg.baseDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerations and required paths.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "":
		c.Env = "test"
	case "test", "dev", "prod":
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	if c.InitialCapital <= 0 {
		return errors.New("config: initial capital must be positive")
	}
	if c.LotDecimals < 0 || c.LotDecimals > 18 {
		return errors.New("config: lot decimals must be within 0..18")
	}
	if strings.TrimSpace(c.TreeFile) == "" {
		return errors.New("config: tree file is required")
	}
	if strings.TrimSpace(c.PricesFile) == "" {
		return errors.New("config: prices file is required")
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// IsTestEnv reports whether the runner is in the default test environment.
func (c *Config) IsTestEnv() bool { return c.Env == "test" || c.Env == "" }

// TreePath is TreeFile resolved against the config file's directory.
func (c *Config) TreePath() string { return confkit.ResolvePath(c.baseDir, c.TreeFile) }

// PricesPath is PricesFile resolved against the config file's directory.
func (c *Config) PricesPath() string { return confkit.ResolvePath(c.baseDir, c.PricesFile) }

// OutputDir is Output.Dir resolved against the config file's directory.
func (c *Config) OutputDir() string { return confkit.ResolvePath(c.baseDir, c.Output.Dir) }
