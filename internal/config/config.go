// Package config loads deepstub settings from an optional deepstub.yaml and DEEPSTUB_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Mode selects what a fixture does with recordings.
type Mode string

// Modes.
const (
	ModeOff    Mode = "off"
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

// Source names.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

const (
	configBaseName = "deepstub"
	envPrefix      = "DEEPSTUB"

	modeKey      = "mode"
	formatKey    = "format"
	rootKey      = "root"
	sourcesKey   = "sources"
	sqliteDSNKey = "sqlite.dsn"
	logFileKey   = "log.file"
	logLevelKey  = "log.level"
	strictKey    = "strict"

	defaultFormat   = "json"
	defaultRoot     = "testdata/samples"
	defaultLogLevel = "warn"
)

// unexported variables.
var (
	errInvalidMode   = errors.New("invalid mode")
	errInvalidFormat = errors.New("invalid format")
	errInvalidSource = errors.New("invalid source")
)

// Config is the resolved configuration.
type Config struct {
	Mode Mode
	// Format is the file encoding, json or yaml.
	Format string
	// Root is the directory file recordings live in.
	Root    string
	Sources []string
	// SQLiteDSN is used when Sources contains sqlite.
	SQLiteDSN string
	// LogFile enables a rotated log file instead of stderr.
	LogFile  string
	LogLevel string
	// Strict rejects replayed samples that were not prepared.
	Strict bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Mode:      ModeOff,
		Format:    defaultFormat,
		Root:      defaultRoot,
		Sources:   []string{SourceFile},
		SQLiteDSN: defaultSQLiteDSN(),
		LogLevel:  defaultLogLevel,
	}
}

// UsesSource reports whether name is among the configured sources.
func (c Config) UsesSource(name string) bool {
	return slices.Contains(c.Sources, name)
}

// Option configures Load.
type Option func(*viper.Viper)

// WithFs reads configuration files from fs.
func WithFs(fs afero.Fs) Option {
	return func(v *viper.Viper) {
		v.SetFs(fs)
	}
}

// WithSearchPath adds a directory searched for deepstub.yaml. The working directory is always
// searched.
func WithSearchPath(dir string) Option {
	return func(v *viper.Viper) {
		v.AddConfigPath(dir)
	}
}

// WithFile reads exactly the given configuration file.
func WithFile(path string) Option {
	return func(v *viper.Viper) {
		v.SetConfigFile(path)
	}
}

// Load resolves the configuration: defaults, then deepstub.yaml, then the environment.
func Load(opts ...Option) (Config, error) {
	v := viper.New()
	v.SetConfigName(configBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault(modeKey, string(defaults.Mode))
	v.SetDefault(formatKey, defaults.Format)
	v.SetDefault(rootKey, defaults.Root)
	v.SetDefault(sourcesKey, defaults.Sources)
	v.SetDefault(sqliteDSNKey, defaults.SQLiteDSN)
	v.SetDefault(logFileKey, defaults.LogFile)
	v.SetDefault(logLevelKey, defaults.LogLevel)
	v.SetDefault(strictKey, defaults.Strict)

	for _, opt := range opts {
		opt(v)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Mode:      Mode(strings.ToLower(v.GetString(modeKey))),
		Format:    strings.ToLower(v.GetString(formatKey)),
		Root:      v.GetString(rootKey),
		Sources:   splitList(v.GetStringSlice(sourcesKey)),
		SQLiteDSN: v.GetString(sqliteDSNKey),
		LogFile:   v.GetString(logFileKey),
		LogLevel:  v.GetString(logLevelKey),
		Strict:    v.GetBool(strictKey),
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeOff, ModeRecord, ModeReplay:
	default:
		return fmt.Errorf("%w: %q (want off, record or replay)", errInvalidMode, c.Mode)
	}

	switch c.Format {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("%w: %q (want json or yaml)", errInvalidFormat, c.Format)
	}

	for _, source := range c.Sources {
		if source != SourceFile && source != SourceSQLite {
			return fmt.Errorf("%w: %q (want file or sqlite)", errInvalidSource, source)
		}
	}

	return nil
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(values []string) []string {
	var out []string

	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func defaultSQLiteDSN() string {
	return filepath.Join(xdg.DataHome, "deepstub", "samples.db")
}
