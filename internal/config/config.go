package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/pid"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "HEALTHSYNC"
	DefaultLogLevel  = "warning"
	configName       = "healthsync"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level" validate:"required"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	PIDFile  string        `mapstructure:"pid_file" validate:"required"`
	// UserID identifies the signed-in user for scan calls
	UserID string `mapstructure:"user_id"`

	Source    SourceConfig    `mapstructure:"source"`
	API       APIConfig       `mapstructure:"api"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type SourceConfig struct {
	Platform string `mapstructure:"platform" validate:"oneof=ios android other"`
	// ExportPath points at a HealthKit JSON export used as the iOS driver
	ExportPath string `mapstructure:"export_path"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type SyncConfig struct {
	DeviceType string        `mapstructure:"device_type" validate:"required"`
	Timezone   string        `mapstructure:"timezone" validate:"required"`
	Throttle   time.Duration `mapstructure:"throttle" validate:"gte=0"`
	DaysBack   int           `mapstructure:"days_back" validate:"min=1,max=100"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite badger"`
	Path    string `mapstructure:"path" validate:"required"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
}

type RateLimitConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=0"`
	MaxRequests int           `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

// FlagKeys maps command-line flag names to configuration keys
var FlagKeys = map[string]string{
	"log-level":     "log_level",
	"interval":      "interval",
	"pid-file":      "pid_file",
	"user-id":       "user_id",
	"platform":      "source.platform",
	"export":        "source.export_path",
	"api-url":       "api.base_url",
	"token":         "api.token",
	"timezone":      "sync.timezone",
	"store-backend": "store.backend",
	"store-path":    "store.path",
	"cache-backend": "cache.backend",
	"redis-addr":    "cache.redis_addr",
	"metrics":       "metrics.enabled",
	"metrics-addr":  "metrics.listen",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("interval", 15*time.Minute)
	v.SetDefault("pid_file", pid.DefaultPath())
	v.SetDefault("user_id", "")

	v.SetDefault("source.platform", "other")
	v.SetDefault("source.export_path", "")

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("sync.device_type", "cli")
	v.SetDefault("sync.timezone", "UTC")
	v.SetDefault("sync.throttle", 15*time.Minute)
	v.SetDefault("sync.days_back", 7)

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", defaultStorePath())

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("rate_limit.min_interval", time.Second)
	v.SetDefault("rate_limit.max_requests", 10)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9464")
}

func defaultStorePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, configName, "state.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", configName, "state.db")
	}
	return filepath.Join("/var/lib", configName, "state.db")
}

func configDirs() []string {
	var dirs []string
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		dirs = append(dirs, filepath.Join(dir, configName))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configName))
	}
	return append(dirs, filepath.Join("/etc", configName))
}

// Load reads defaults, then the TOML file, then the environment, then
// flags, each overriding the one before
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	if o.flags != nil {
		for name, key := range FlagKeys {
			flag := o.flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() && c.LogLevel != "warn" {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if err := validate.Struct(c); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	return nil
}
