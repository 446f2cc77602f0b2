package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/latticegate/latticegate/internal/channel"
	"github.com/latticegate/latticegate/internal/engine"
	"github.com/latticegate/latticegate/internal/ledger"
	"github.com/latticegate/latticegate/internal/projector"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultScaleQ        = 1_000_000
	DefaultSpectralIters = 3
	DefaultAuditEvery    = 768
)

// Config is the top-level provisioning document. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Channels   []ChannelConfig  `yaml:"channels"`
	Ledger     []RowConfig      `yaml:"ledger"`
	Trajectory TrajectoryConfig `yaml:"trajectory"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// EngineConfig holds the scale, budget limits and estimator settings.
type EngineConfig struct {
	// ScaleQ is the fixed-point scaling factor Q. Every *_q field in this
	// file is a real value times ScaleQ.
	ScaleQ int64 `yaml:"scale_q"`

	// Limit1Q and Limit2Q bound committed channel weights; the effective
	// cap is the smaller of the two.
	Limit1Q int64 `yaml:"limit1_q"`
	Limit2Q int64 `yaml:"limit2_q"`

	// SpectralIters is the power-iteration count for the spectral gate.
	SpectralIters int `yaml:"spectral_iters"`

	// Meta is opaque passthrough metadata carried alongside the budgets.
	Meta map[string]string `yaml:"meta"`
}

// ChannelConfig describes one channel in registration order. Order in the
// file is load-bearing: it fixes the ledger walk and digest input order.
type ChannelConfig struct {
	// ID is the unique channel identifier.
	ID string `yaml:"id"`

	// ClassTag is an opaque integer tag threaded through to audit context.
	ClassTag int `yaml:"class_tag"`

	// NormQ upper-bounds the operator norm at scale Q. Trusted, not
	// re-verified; an understated value weakens the slope gate.
	NormQ int64 `yaml:"norm_q"`

	// Kind selects the operator: identity | diag | shift | dense.
	Kind string `yaml:"kind"`

	// GainsQ holds the diagonal gains — used when Kind == "diag".
	GainsQ []int64 `yaml:"gains_q"`

	// Shift is the cyclic offset — used when Kind == "shift".
	Shift int `yaml:"shift"`

	// MatrixQ holds the dense rows — used when Kind == "dense".
	MatrixQ [][]int64 `yaml:"matrix_q"`
}

// RowConfig provisions one ledger row.
type RowConfig struct {
	// Channel is the channel id this row belongs to.
	Channel string `yaml:"channel"`

	// Class is the resource class label budgets are tracked under.
	Class string `yaml:"class"`

	// Budget is the initial activation budget for the class. The first
	// row naming a class establishes its budget.
	Budget int64 `yaml:"budget"`
}

// TrajectoryConfig seeds the daemon's state threading. The engine itself
// is stateless across calls; the daemon feeds NextState forward.
type TrajectoryConfig struct {
	State  []int64 `yaml:"state"`
	Offset []int64 `yaml:"offset"`
}

// AuditConfig configures the downstream audit journal.
type AuditConfig struct {
	// Journal is the JSONL output path for step entries.
	Journal string `yaml:"journal"`

	// AuditEvery emits an interval marker entry every N committed steps.
	AuditEvery int `yaml:"audit_every"`
}

// MetricsConfig configures the engine counter snapshot.
type MetricsConfig struct {
	// Snapshot is the output path for the Prometheus text exposition.
	Snapshot string `yaml:"snapshot"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			ScaleQ:        DefaultScaleQ,
			SpectralIters: DefaultSpectralIters,
		},
		Audit: AuditConfig{
			AuditEvery: DefaultAuditEvery,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Engine.ScaleQ <= 0 {
		return fmt.Errorf("engine.scale_q must be positive")
	}
	if cfg.Engine.Limit1Q < 0 || cfg.Engine.Limit2Q < 0 {
		return fmt.Errorf("engine limits must be nonnegative")
	}
	if cfg.Engine.SpectralIters <= 0 {
		return fmt.Errorf("engine.spectral_iters must be positive")
	}

	seen := make(map[string]bool, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("channels[%d]: duplicate id %q", i, ch.ID)
		}
		seen[ch.ID] = true
		if ch.NormQ < 0 {
			return fmt.Errorf("channels[%d] %q: norm_q must be nonnegative", i, ch.ID)
		}
		switch ch.Kind {
		case "identity", "diag", "shift", "dense":
		default:
			return fmt.Errorf("channels[%d] %q: unknown kind %q", i, ch.ID, ch.Kind)
		}
	}

	for i, row := range cfg.Ledger {
		if row.Channel == "" || row.Class == "" {
			return fmt.Errorf("ledger[%d]: channel and class are required", i)
		}
		if !seen[row.Channel] {
			return fmt.Errorf("ledger[%d]: unknown channel %q", i, row.Channel)
		}
		if row.Budget < 0 {
			return fmt.Errorf("ledger[%d] %q: budget must be nonnegative", i, row.Channel)
		}
	}

	if len(cfg.Trajectory.State) != len(cfg.Trajectory.Offset) {
		return fmt.Errorf("trajectory: state dim %d != offset dim %d",
			len(cfg.Trajectory.State), len(cfg.Trajectory.Offset))
	}
	return nil
}

// Budgets converts the engine section into projector budget limits.
func (c *Config) Budgets() projector.Budgets {
	return projector.Budgets{
		Limit1Q: c.Engine.Limit1Q,
		Limit2Q: c.Engine.Limit2Q,
		Q:       c.Engine.ScaleQ,
		Meta:    c.Engine.Meta,
	}
}

// Build constructs the channel roster, provisions the ledger, and wires
// both into an engine, all in file order.
func (c *Config) Build() (*engine.Engine, *ledger.Ledger, error) {
	chans := make([]channel.Channel, 0, len(c.Channels))
	for _, cc := range c.Channels {
		op, err := channel.FromKind(cc.Kind, c.Engine.ScaleQ, cc.GainsQ, cc.Shift, cc.MatrixQ)
		if err != nil {
			return nil, nil, fmt.Errorf("config: channel %q: %w", cc.ID, err)
		}
		chans = append(chans, channel.Channel{
			ID:       cc.ID,
			ClassTag: cc.ClassTag,
			NormQ:    cc.NormQ,
			Op:       op,
		})
	}

	led := ledger.New()
	for _, row := range c.Ledger {
		if err := led.Register(row.Channel, row.Class, row.Budget); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
	}

	eng, err := engine.New(chans, led, c.Budgets(), c.Engine.SpectralIters)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return eng, led, nil
}
