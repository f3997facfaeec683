package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// Config is the openspm.yaml file, overridden by OPENSPM_* variables and flags
type Config struct {
	Dialect  string       `yaml:"dialect"`
	DSN      string       `yaml:"dsn"`
	PageSize int          `yaml:"page_size"`
	Naming   NamingConfig `yaml:"naming"`
	Log      LogConfig    `yaml:"log"`

	PrepareStmt struct {
		Enabled bool          `yaml:"enabled"`
		MaxSize int           `yaml:"max_size"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"prepare_stmt"`
}

type NamingConfig struct {
	TablePrefix   string `yaml:"table_prefix"`
	SnakeCase     bool   `yaml:"snake_case"`
	SingularTable bool   `yaml:"singular_table"`
}

type LogConfig struct {
	// Format is one of text, zap, zerolog, logrus or slog
	Format        string        `yaml:"format"`
	Level         string        `yaml:"level"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	Parameterized bool          `yaml:"parameterized"`
}

func defaultConfig() Config {
	return Config{
		Dialect:  "sqlite",
		DSN:      "openspm.db",
		PageSize: 20,
		Log: LogConfig{
			Format:        "text",
			Level:         "warn",
			SlowThreshold: 200 * time.Millisecond,
		},
	}
}

// loadConfig reads path over the defaults, a missing file is not an error
// unless it was named explicitly
func loadConfig(path string, explicit bool, getenv func(string) string) (Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return config, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return config, err
		}
	}

	if v := getenv("OPENSPM_DIALECT"); v != "" {
		config.Dialect = v
	}
	if v := getenv("OPENSPM_DSN"); v != "" {
		config.DSN = v
	}
	if v := getenv("OPENSPM_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}

	if config.PageSize < 1 {
		return config, fmt.Errorf("page_size must be positive, got %d", config.PageSize)
	}
	return config, nil
}

// Options converts the file settings into tableops options
func (c Config) Options(stderr io.Writer) ([]tableops.Option, error) {
	l, err := c.Log.Logger(stderr)
	if err != nil {
		return nil, err
	}

	opts := []tableops.Option{
		tableops.WithLogger(l),
		tableops.WithNamingStrategy(schema.NamingStrategy{
			TablePrefix:   c.Naming.TablePrefix,
			SnakeCase:     c.Naming.SnakeCase,
			SingularTable: c.Naming.SingularTable,
		}),
	}
	if c.PrepareStmt.Enabled {
		opts = append(opts, tableops.WithPrepareStmt(c.PrepareStmt.MaxSize, c.PrepareStmt.TTL))
	}
	return opts, nil
}

// Logger builds the configured logger writing to out
func (c LogConfig) Logger(out io.Writer) (logger.Interface, error) {
	config := logger.Config{
		SlowThreshold:             c.SlowThreshold,
		LogLevel:                  logger.ParseLevel(c.Level, logger.Warn),
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      c.Parameterized,
	}

	switch strings.ToLower(c.Format) {
	case "", "text":
		if f, ok := out.(*os.File); ok && isTerminal(f) {
			config.Colorful = true
			out = colorable.NewColorable(f)
		}
		return logger.New(log.New(out, "\r\n", log.LstdFlags), config), nil
	case "zap":
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(out), logger.ZapLevel(config.LogLevel))
		return logger.NewZapLogger(zap.New(core), config), nil
	case "zerolog":
		return logger.NewZerologConsoleLogger(out, config), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(out)
		return logger.NewLogrusLogger(l, config), nil
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewTextHandler(out, nil)), config), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Format)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
