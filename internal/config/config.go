// Package config loads the pipeline's runtime configuration. Precedence
// follows the teacher's documented order (internal/cli/init.go's
// writeDefaultConfig header comment): defaults < config file < env vars.
// No cli flag overrides a Config field; the cli's --config flag only
// selects the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreConfig is one backend connection's coordinates.
type StoreConfig struct {
	Host     string `toml:"host" mapstructure:"host"`
	Port     int    `toml:"port" mapstructure:"port"`
	User     string `toml:"user" mapstructure:"user"`
	Password string `toml:"password" mapstructure:"password"`
	Database string `toml:"database" mapstructure:"database"`
}

// Config is the full set of env-backed pipeline settings (spec.md
// section 6's "Configuration (env-backed)" list).
type Config struct {
	Relational StoreConfig `toml:"relational" mapstructure:"relational"`
	Document   StoreConfig `toml:"document" mapstructure:"document"`

	BatchSize           int     `toml:"batch_size" mapstructure:"batch_size"`
	FlushTimeoutSeconds float64 `toml:"flush_timeout_seconds" mapstructure:"flush_timeout_seconds"`

	DataStreamURL string `toml:"data_stream_url" mapstructure:"data_stream_url"`
	MetadataDir   string `toml:"metadata_dir" mapstructure:"metadata_dir"`
	WALFile       string `toml:"wal_file" mapstructure:"wal_file"`
}

// FlushTimeout returns FlushTimeoutSeconds as a time.Duration.
func (c Config) FlushTimeout() time.Duration {
	return time.Duration(c.FlushTimeoutSeconds * float64(time.Second))
}

// DefaultConfig returns the values mandated where the spec gives a
// default and empty/zero otherwise (left for the config file or env to
// supply), mirroring config.DefaultConfig() in the teacher.
func DefaultConfig() Config {
	return Config{
		Relational: StoreConfig{Host: "localhost", Port: 5432, Database: "aidb"},
		Document:   StoreConfig{Host: "localhost", Port: 27017, Database: "aidb"},

		BatchSize:           50,
		FlushTimeoutSeconds: 5.0,

		MetadataDir: "./aidb-metadata",
		WALFile:     "./aidb-metadata/wal.log",
	}
}

// Load resolves a Config starting from DefaultConfig, merging in
// configPath (a TOML file, read when configPath is non-empty; a file
// that cannot be read is an error) and then AIDB_*
// environment variables, which take the highest precedence of the two.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	applyDefaults(v, DefaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("AIDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("relational.host", d.Relational.Host)
	v.SetDefault("relational.port", d.Relational.Port)
	v.SetDefault("relational.user", d.Relational.User)
	v.SetDefault("relational.password", d.Relational.Password)
	v.SetDefault("relational.database", d.Relational.Database)

	v.SetDefault("document.host", d.Document.Host)
	v.SetDefault("document.port", d.Document.Port)
	v.SetDefault("document.user", d.Document.User)
	v.SetDefault("document.password", d.Document.Password)
	v.SetDefault("document.database", d.Document.Database)

	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("flush_timeout_seconds", d.FlushTimeoutSeconds)
	v.SetDefault("data_stream_url", d.DataStreamURL)
	v.SetDefault("metadata_dir", d.MetadataDir)
	v.SetDefault("wal_file", d.WALFile)
}

// bindEnv registers every key explicitly: viper's AutomaticEnv alone
// does not discover nested keys it has never seen referenced.
func bindEnv(v *viper.Viper) {
	keys := []string{
		"relational.host", "relational.port", "relational.user",
		"relational.password", "relational.database",
		"document.host", "document.port", "document.user",
		"document.password", "document.database",
		"batch_size", "flush_timeout_seconds",
		"data_stream_url", "metadata_dir", "wal_file",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
