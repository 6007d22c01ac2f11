package lanes

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-lanes/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
)

// Profile is the on-disk orchestrator profile
type Profile struct {
	Isolate  []string `yaml:"isolate"`
	MaxLanes int      `yaml:"max_lanes"`
}

// LoadProfile reads a YAML profile from path
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile '%s': %w", path, err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile '%s': %w", path, err)
	}
	if profile.MaxLanes < 0 {
		return nil, fmt.Errorf("profile '%s': max_lanes must not be negative", path)
	}
	return &profile, nil
}

// Config holds the application configuration
type Config struct {
	Profile       string   // Path of the loaded profile, empty if none
	Isolate       []string // Name prefixes of lane-local bindings
	MaxLanes      int      // Upper bound on plan lanes, 0 for no limit
	Summary       bool     // Print a per-lane result table after each run
	MetricsConfig opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a new Config from cli context. Values from the profile come first,
// flags extend the isolate prefixes and override max lanes when set.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		Summary:       ctx.Bool(flags.Summary.Name),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
		Log:           log,
	}

	if path := ctx.String(flags.Profile.Name); path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for profile '%s': %w", path, err)
		}
		profile, err := LoadProfile(absPath)
		if err != nil {
			return nil, err
		}
		cfg.Profile = absPath
		cfg.Isolate = append(cfg.Isolate, profile.Isolate...)
		cfg.MaxLanes = profile.MaxLanes
	}

	for _, prefix := range ctx.StringSlice(flags.Isolate.Name) {
		if !slices.Contains(cfg.Isolate, prefix) {
			cfg.Isolate = append(cfg.Isolate, prefix)
		}
	}
	if ctx.IsSet(flags.MaxLanes.Name) {
		cfg.MaxLanes = ctx.Int(flags.MaxLanes.Name)
	}
	if cfg.MaxLanes < 0 {
		return nil, fmt.Errorf("max lanes must not be negative, got %d", cfg.MaxLanes)
	}
	if err := cfg.MetricsConfig.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the application logger from the log flags
func NewLogger(ctx *cli.Context) log.Logger {
	return oplog.NewLogger(oplog.AppOut(ctx), oplog.ReadCLIConfig(ctx))
}
