package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
)

// Config is the configuration of the relmap command.
type Config struct {
	Driver    string            `mapstructure:"driver"`
	DSN       string            `mapstructure:"dsn"`
	Debug     bool              `mapstructure:"debug"`      // log every statement
	SlowQuery time.Duration     `mapstructure:"slow_query"` // 0 disables statistics
	Eager     bool              `mapstructure:"eager"`
	Strict    bool              `mapstructure:"strict"`
	Session   map[string]string `mapstructure:"session"` // SET before every statement, e.g. search_path
	Log       LogConfig         `mapstructure:"log"`
}

// LogConfig configures the console and file loggers.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty logs to the console only
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Dev        bool   `mapstructure:"dev"`
}

const envPrefix = "RELMAP"

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", dialect.SQLite)
	v.SetDefault("dsn", ":memory:")
	v.SetDefault("debug", false)
	v.SetDefault("slow_query", 0)
	v.SetDefault("eager", false)
	v.SetDefault("strict", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)
}

// loadConfig reads path, if it exists, and the RELMAP_ environment.
// RELMAP_LOG_LEVEL overrides log.level.
func loadConfig(path string) (*Config, *viper.Viper, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var perr *os.PathError
			if !errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("read config %s: %w", path, err)
			}
			// A missing file is not an error; it is just not watched.
			v = newViper()
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) validate() error {
	switch c.Driver {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if len(c.Session) > 0 && c.Driver == dialect.SQLite {
		return errors.New("session variables are not supported by sqlite")
	}
	for name := range c.Session {
		if !sql.ValidVarName(name) {
			return fmt.Errorf("invalid session variable name %q", name)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// sessionContext returns ctx carrying the configured session variables in
// name order.
func (c *Config) sessionContext(ctx context.Context) context.Context {
	for _, name := range slices.Sorted(maps.Keys(c.Session)) {
		ctx = sql.WithVar(ctx, name, c.Session[name])
	}
	return ctx
}

// watchConfig applies log.level changes of the config file to level.
func watchConfig(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		applyLevel(v.GetString("log.level"), level, log)
	})
	v.WatchConfig()
}

func applyLevel(s string, level zap.AtomicLevel, log *zap.Logger) {
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		log.Warn("ignore log level", zap.String("level", s), zap.Error(err))
		return
	}
	if l != level.Level() {
		level.SetLevel(l)
		log.Info("log level changed", zap.Stringer("level", l))
	}
}
