package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// PathEnv names the environment variable consulted when no --config flag is given.
const PathEnv = "SPAWNSIM_CONFIG"

// DefaultPath is used when neither the flag nor PathEnv is set.
const DefaultPath = "config/spawnsim.toml"

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Pool       PoolConfig       `toml:"pool"`
	World      WorldConfig      `toml:"world"`
	Data       DataConfig       `toml:"data"`
	Store      StoreConfig      `toml:"store"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name" env:"SPAWNSIM_SERVER_NAME"`
	ID        int    `toml:"id"   env:"SPAWNSIM_SERVER_ID"`
	StartTime int64  // set at boot, not from config
	Seed      uint64 `toml:"seed" env:"SPAWNSIM_SEED"` // 0 = time based
}

type SimulationConfig struct {
	TickRate          time.Duration `toml:"tick_rate"           env:"SPAWNSIM_TICK_RATE"`
	SpawningMaxTime   time.Duration `toml:"spawning_max_time"   env:"SPAWNSIM_SPAWNING_MAX_TIME"` // shared per-tick budget
	DirectoryInterval time.Duration `toml:"directory_interval"  env:"SPAWNSIM_DIRECTORY_INTERVAL"`
	SaveIntervalTicks int           `toml:"save_interval_ticks" env:"SPAWNSIM_SAVE_INTERVAL_TICKS"` // 0 = only on shutdown
	KillChance        float64       `toml:"kill_chance"         env:"SPAWNSIM_KILL_CHANCE"`         // per visible entity per tick
	CameraSpeed       float64       `toml:"camera_speed"        env:"SPAWNSIM_CAMERA_SPEED"`        // world units per second
	ScorePerKill      float64       `toml:"score_per_kill"`
}

type PoolConfig struct {
	DefaultSize      int  `toml:"default_size"      env:"SPAWNSIM_POOL_DEFAULT_SIZE"`
	DefaultGrowable  bool `toml:"default_growable"  env:"SPAWNSIM_POOL_DEFAULT_GROWABLE"`
	DefaultTemporary bool `toml:"default_temporary" env:"SPAWNSIM_POOL_DEFAULT_TEMPORARY"`
}

type RectConfig struct {
	MinX float64 `toml:"min_x"`
	MinY float64 `toml:"min_y"`
	MaxX float64 `toml:"max_x"`
	MaxY float64 `toml:"max_y"`
}

type WorldConfig struct {
	Bounds      RectConfig `toml:"bounds"`
	CellSize    float64    `toml:"cell_size"`     // spatial spawner index
	AOICellSize float64    `toml:"aoi_cell_size"` // live entity grid
	// Camera activation ring, centred on the camera.
	ActivationMinW float64 `toml:"activation_min_w"`
	ActivationMinH float64 `toml:"activation_min_h"`
	ActivationMaxW float64 `toml:"activation_max_w"`
	ActivationMaxH float64 `toml:"activation_max_h"`
}

type DataConfig struct {
	Prototypes string `toml:"prototypes" env:"SPAWNSIM_DATA_PROTOTYPES"`
	Spawners   string `toml:"spawners"   env:"SPAWNSIM_DATA_SPAWNERS"`
	Scripts    string `toml:"scripts"    env:"SPAWNSIM_DATA_SCRIPTS"`
}

type StoreConfig struct {
	Driver          string        `toml:"driver" env:"SPAWNSIM_STORE_DRIVER"` // "", "postgres" or "sqlite"
	DSN             string        `toml:"dsn"    env:"SPAWNSIM_STORE_DSN"`
	Level           string        `toml:"level"  env:"SPAWNSIM_STORE_LEVEL"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"      env:"SPAWNSIM_METRICS_ENABLED"`
	BindAddress string `toml:"bind_address" env:"SPAWNSIM_METRICS_BIND_ADDRESS"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  env:"SPAWNSIM_LOG_LEVEL"`
	Format string `toml:"format" env:"SPAWNSIM_LOG_FORMAT"` // "json" or "console"
}

// ResolvePath picks the config path: flag value, then PathEnv, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the TOML file over the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.TickRate <= 0 {
		errs = append(errs, errors.New("simulation.tick_rate must be positive"))
	}
	if c.Simulation.SpawningMaxTime < 0 {
		errs = append(errs, errors.New("simulation.spawning_max_time must not be negative"))
	}
	if c.Pool.DefaultSize < 0 {
		errs = append(errs, errors.New("pool.default_size must not be negative"))
	}
	if c.World.Bounds.MaxX <= c.World.Bounds.MinX || c.World.Bounds.MaxY <= c.World.Bounds.MinY {
		errs = append(errs, errors.New("world.bounds is empty"))
	}
	if c.World.CellSize <= 0 {
		errs = append(errs, errors.New("world.cell_size must be positive"))
	}
	switch c.Store.Driver {
	case "", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "spawnsim",
			ID:   1,
		},
		Simulation: SimulationConfig{
			TickRate:          200 * time.Millisecond,
			SpawningMaxTime:   4 * time.Millisecond,
			DirectoryInterval: 200 * time.Millisecond,
			SaveIntervalTicks: 300,
			KillChance:        0.02,
			CameraSpeed:       4,
			ScorePerKill:      10,
		},
		Pool: PoolConfig{
			DefaultSize:      15,
			DefaultGrowable:  false,
			DefaultTemporary: true,
		},
		World: WorldConfig{
			Bounds:         RectConfig{MinX: -500, MinY: -200, MaxX: 500, MaxY: 200},
			CellSize:       10,
			AOICellSize:    20,
			ActivationMinW: 30,
			ActivationMinH: 20,
			ActivationMaxW: 60,
			ActivationMaxH: 40,
		},
		Data: DataConfig{
			Prototypes: "data/yaml/prototypes.yaml",
			Spawners:   "data/yaml/spawners.yaml",
			Scripts:    "scripts/spawn",
		},
		Store: StoreConfig{
			Driver:          "",
			DSN:             "file:spawnsim.db",
			Level:           "default",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1:9108",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
