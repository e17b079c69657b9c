// Package config loads the adapter's YAML configuration, applies EFIS_*
// environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/signalsfoundry/efis-adapter/core"
	"github.com/signalsfoundry/efis-adapter/model"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig             `yaml:"server"`
	Log       LogConfig                `yaml:"log"`
	Tracing   TracingConfig            `yaml:"tracing"`
	Catalog   CatalogConfig            `yaml:"catalog"`
	Sources   SourcesConfig            `yaml:"sources"`
	Snapshots SnapshotConfig           `yaml:"snapshots"`
	Autopilot AutopilotConfig          `yaml:"autopilot"`
	Sanitizer SanitizerConfig          `yaml:"sanitizer"`
	Simulator SimulatorConfig          `yaml:"simulator"`
	Scaling   map[string]ScaleOverride `yaml:"scaling"`
}

// ScaleOverride replaces the scaling entry for one field. An omitted
// multiplier or divisor defaults to 1; an explicit zero is rejected.
type ScaleOverride struct {
	Multiplier *float64   `yaml:"multiplier"`
	Divisor    *float64   `yaml:"divisor"`
	Offset     float64    `yaml:"offset"`
	Min        float64    `yaml:"min"`
	Max        float64    `yaml:"max"`
	Bound      core.Bound `yaml:"bound"`
	Unit       string     `yaml:"unit"`
}

// FieldScale resolves o into a core.FieldScale.
func (o ScaleOverride) FieldScale() core.FieldScale {
	s := core.FieldScale{Multiplier: 1, Divisor: 1, Offset: o.Offset, Min: o.Min, Max: o.Max, Bound: o.Bound, Unit: o.Unit}
	if o.Multiplier != nil {
		s.Multiplier = *o.Multiplier
	}
	if o.Divisor != nil {
		s.Divisor = *o.Divisor
	}
	return s
}

type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr" validate:"required"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter" validate:"omitempty,oneof=stdout otlp otlpgrpc"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

type CatalogConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Watch bool   `yaml:"watch"`
}

// SourcesConfig controls the redundant airframe read.
type SourcesConfig struct {
	// Roles is the failover order, highest priority first.
	Roles          []string      `yaml:"roles" validate:"required,min=1,dive,required"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// SnapshotConfig locates the BadgerDB holding the latest record per role and
// category.
type SnapshotConfig struct {
	Path     string        `yaml:"path" validate:"required_without=InMemory"`
	InMemory bool          `yaml:"in_memory"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// AutopilotConfig locates the SQLite autopilot state database.
type AutopilotConfig struct {
	DBPath  string        `yaml:"db_path" validate:"required"`
	Timeout time.Duration `yaml:"timeout"`
}

type SanitizerConfig struct {
	MaxLen int `yaml:"max_len" validate:"gte=0,lte=4096"`
}

// SimulatorConfig drives the synthetic generators used when no hardware
// generators feed the snapshot store.
type SimulatorConfig struct {
	Enabled bool          `yaml:"enabled"`
	Tick    time.Duration `yaml:"tick"`
	// CentralOutageEvery drops the central generator's snapshot on every Nth
	// tick so the failover path is exercised. Zero disables outages.
	CentralOutageEvery int      `yaml:"central_outage_every" validate:"gte=0"`
	Categories         []string `yaml:"categories"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddr:    ":50061",
			MetricsAddr: ":9091",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			ServiceName: "efis-adapter",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
		Catalog: CatalogConfig{Path: "configs/categories.yaml", Watch: true},
		Sources: SourcesConfig{
			Roles:          []string{string(model.RoleCentral), string(model.RoleCopilot)},
			AttemptTimeout: core.DefaultAttemptTimeout,
		},
		Snapshots: SnapshotConfig{Path: "data/snapshots", MaxAge: 2 * time.Second},
		Autopilot: AutopilotConfig{DBPath: "data/autopilot.db", Timeout: 250 * time.Millisecond},
		Simulator: SimulatorConfig{Tick: 100 * time.Millisecond},
	}
}

var configValidate = validator.New()

// Load builds a Config from defaults, the YAML file at path (when non-empty)
// and environment overrides read through getenv (os.Getenv when nil).
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("EFIS_GRPC_ADDR", &c.Server.GRPCAddr)
	setString("EFIS_METRICS_ADDR", &c.Server.MetricsAddr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("EFIS_CATALOG_PATH", &c.Catalog.Path)
	setString("EFIS_SNAPSHOT_PATH", &c.Snapshots.Path)
	setString("EFIS_AUTOPILOT_DB", &c.Autopilot.DBPath)
	setString("EFIS_TRACING_EXPORTER", &c.Tracing.Exporter)
	setString("EFIS_TRACING_SERVICE_NAME", &c.Tracing.ServiceName)
	setString("EFIS_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	if v := getenv("EFIS_TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = strings.EqualFold(v, "true")
	}
	if v := getenv("EFIS_TRACING_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EFIS_TRACING_SAMPLE_RATIO: %w", err)
		}
		c.Tracing.SampleRatio = ratio
	}
	if v := getenv("EFIS_SOURCE_ROLES"); v != "" {
		var roles []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
		c.Sources.Roles = roles
	}
	if v := getenv("EFIS_ATTEMPT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EFIS_ATTEMPT_TIMEOUT: %w", err)
		}
		c.Sources.AttemptTimeout = d
	}
	return nil
}

// Validate checks field constraints and the derived role list and scaling
// table.
func (c Config) Validate() error {
	var errs []error
	if err := configValidate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Sources.AttemptTimeout < 0 {
		errs = append(errs, fmt.Errorf("sources.attempt_timeout must not be negative"))
	}
	if c.Snapshots.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("snapshots.max_age must not be negative"))
	}
	if c.Simulator.Enabled && c.Simulator.Tick <= 0 {
		errs = append(errs, fmt.Errorf("simulator.tick must be positive when the simulator is enabled"))
	}
	if _, err := c.RolePriority(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ScalingTable(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RolePriority returns the parsed failover order.
func (c Config) RolePriority() ([]model.SourceRole, error) {
	return model.ParseRolePriority(c.Sources.Roles)
}

// ScalingTable returns the default scaling table with configured overrides.
func (c Config) ScalingTable() (core.ScalingTable, error) {
	overrides := make(map[core.Field]core.FieldScale, len(c.Scaling))
	for name, o := range c.Scaling {
		overrides[core.Field(name)] = o.FieldScale()
	}
	return core.NewScalingTable(overrides)
}
