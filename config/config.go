package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	// Port, when set (e.g. from $PORT), overrides the port of HTTPAddress.
	Port       int    `mapstructure:"port"`
	RPCAddress string `mapstructure:"rpc_address"`
	Heartbeat  int    `mapstructure:"heartbeat_seconds"`
}

type GameConfig struct {
	TickRateHz          int     `mapstructure:"tick_rate_hz"`
	PhysicsStep         float64 `mapstructure:"physics_step"`
	VelocityIterations  int     `mapstructure:"velocity_iterations"`
	PositionIterations  int     `mapstructure:"position_iterations"`
	ArenaWidth          float64 `mapstructure:"arena_width"`
	ArenaHeight         float64 `mapstructure:"arena_height"`
	ShrinkRate          float64 `mapstructure:"shrink_rate"`
	MinSize             float64 `mapstructure:"min_size"`
	ShrinkIntervalSec   int     `mapstructure:"shrink_interval_seconds"`
	WallThickness       float64 `mapstructure:"wall_thickness"`
	ForceGain           float64 `mapstructure:"force_gain"`
	PlayerRadius        float64 `mapstructure:"player_radius"`
	MinPlayers          int     `mapstructure:"min_players"`
	MaxPlayers          int     `mapstructure:"max_players"`
	ContactWindowMillis int     `mapstructure:"contact_window_ms"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig with an empty Host keeps match records in memory.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	rules := game.DefaultRules()

	v.SetDefault("server.http_address", ":3000")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.rpc_address", ":3001")
	v.SetDefault("server.heartbeat_seconds", 30)

	v.SetDefault("game.tick_rate_hz", rules.TickRateHz)
	v.SetDefault("game.physics_step", rules.PhysicsStep)
	v.SetDefault("game.velocity_iterations", rules.VelocityIterations)
	v.SetDefault("game.position_iterations", rules.PositionIterations)
	v.SetDefault("game.arena_width", rules.ArenaWidth)
	v.SetDefault("game.arena_height", rules.ArenaHeight)
	v.SetDefault("game.shrink_rate", rules.ShrinkRate)
	v.SetDefault("game.min_size", rules.MinSize)
	v.SetDefault("game.shrink_interval_seconds", int(rules.ShrinkEvery/time.Second))
	v.SetDefault("game.wall_thickness", rules.WallThickness)
	v.SetDefault("game.force_gain", rules.ForceGain)
	v.SetDefault("game.player_radius", rules.PlayerRadius)
	v.SetDefault("game.min_players", rules.MinPlayers)
	v.SetDefault("game.max_players", rules.MaxPlayers)
	v.SetDefault("game.contact_window_ms", int(rules.ContactWindow/time.Millisecond))

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
}

// LoadConfig reads config.yaml from path if present; defaults and
// environment variables (SERVER_HTTP_ADDRESS, PORT, ...) fill the rest.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	g := c.Game
	switch {
	case g.TickRateHz <= 0:
		return fmt.Errorf("game.tick_rate_hz must be positive")
	case g.PhysicsStep <= 0:
		return fmt.Errorf("game.physics_step must be positive")
	case g.MinSize <= 0:
		return fmt.Errorf("game.min_size must be positive")
	case g.MinPlayers < 2:
		return fmt.Errorf("game.min_players must be at least 2")
	case g.MaxPlayers < g.MinPlayers:
		return fmt.Errorf("game.max_players must be >= game.min_players")
	}
	return nil
}

// ListenAddress is the HTTP address, with Port taking precedence.
func (s ServerConfig) ListenAddress() string {
	if s.Port <= 0 {
		return s.HTTPAddress
	}
	host := s.HTTPAddress
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// HeartbeatInterval is how often clients must show signs of life.
func (s ServerConfig) HeartbeatInterval() time.Duration {
	return time.Duration(s.Heartbeat) * time.Second
}

// Rules converts the game section into match rules.
func (g GameConfig) Rules() game.Rules {
	return game.Rules{
		TickRateHz:         g.TickRateHz,
		PhysicsStep:        g.PhysicsStep,
		VelocityIterations: g.VelocityIterations,
		PositionIterations: g.PositionIterations,
		ArenaWidth:         g.ArenaWidth,
		ArenaHeight:        g.ArenaHeight,
		ShrinkRate:         g.ShrinkRate,
		MinSize:            g.MinSize,
		ShrinkEvery:        time.Duration(g.ShrinkIntervalSec) * time.Second,
		WallThickness:      g.WallThickness,
		ForceGain:          g.ForceGain,
		PlayerRadius:       g.PlayerRadius,
		MinPlayers:         g.MinPlayers,
		MaxPlayers:         g.MaxPlayers,
		ContactWindow:      time.Duration(g.ContactWindowMillis) * time.Millisecond,
	}
}

// LoggerOptions converts the log section for logger.Init.
func (l LogConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      l.Level,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	}
}
