// Package config resolves viewcache CLI settings from flags, the
// environment and an optional config file.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: VIEWCACHE_DB, VIEWCACHE_FORMAT...
const EnvPrefix = "VIEWCACHE"

// Flag names shared by the CLI and the config file keys.
const (
	FlagConfig   = "config"
	FlagDB       = "db"
	FlagSchema   = "schema"
	FlagFormat   = "format"
	FlagVerbose  = "verbose"
	FlagPushdown = "pushdown"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config is the resolved CLI configuration.
type Config struct {
	// DBPath is the SQLite triple store file.
	DBPath string `mapstructure:"db"`
	// SchemaPath is a CUE file or directory declaring collections. Without
	// it every query takes the full-scan path.
	SchemaPath string `mapstructure:"schema"`
	// Format is the output format, "text" or "json".
	Format string `mapstructure:"format"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
	// Pushdown enables SQL pushdown of literal equality filters.
	Pushdown bool `mapstructure:"pushdown"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBPath:   "viewcache.db",
		Format:   "text",
		Pushdown: true,
	}
}

// RegisterFlags defines every configuration flag on flags with its default.
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()
	flags.StringP(FlagConfig, "c", "", "configuration file (yaml, toml or json)")
	flags.String(FlagDB, def.DBPath, "path to the SQLite triple store")
	flags.String(FlagSchema, def.SchemaPath, "CUE schema file or directory")
	flags.String(FlagFormat, def.Format, "output format (json|text)")
	flags.BoolP(FlagVerbose, "v", def.Verbose, "verbose output")
	flags.Bool(FlagPushdown, def.Pushdown, "push literal equality filters into SQL")
}

// Load resolves the configuration. Precedence, highest first: flags set on
// the command line, VIEWCACHE_* environment variables, the config file,
// flag defaults.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("binding flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString(FlagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
		}

		known := make(map[string]bool)
		flags.VisitAll(func(f *pflag.Flag) { known[f.Name] = true })
		for _, key := range v.AllKeys() {
			if !known[key] {
				return Config{}, fmt.Errorf("invalid option in config file %q: %s", path, key)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}
