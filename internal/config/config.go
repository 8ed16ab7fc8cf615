package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

const (
	defaultStoreDriver    = DriverSQLite
	defaultStoreDSN       = "data/fishlens.db"
	defaultStoreTimeout   = 30 * time.Second
	defaultBatchSize      = 200
	defaultConcurrency    = 1
	defaultTankCensus     = 10
	defaultTankTimezone   = "UTC"
	defaultWeightSamples  = 1000
	defaultKafkaEnabled   = false
	defaultKafkaTopic     = "fishlens-notifications"
	defaultHTTPAddr       = ":8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultLogFileEnabled = false
	defaultLogDirectory   = "log"
	defaultLogFilename    = "fishlens.log"
	defaultLogMaxSizeMB   = 100
	defaultLogMaxBackups  = 3
	defaultLogMaxAgeDays  = 7
	defaultLogCompress    = false

	// Environment variable prefix
	envPrefix = "FISHLENS"
)

type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Tank   TankConfig   `mapstructure:"tank"`
	Notify NotifyConfig `mapstructure:"notify"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver"` // sqlite, postgres or postgrest
	DSN     string        `mapstructure:"dsn"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FetchConfig struct {
	BatchSize   int `mapstructure:"batchSize"`
	Concurrency int `mapstructure:"concurrency"`
}

// TankConfig holds the assumptions used to extrapolate per-measurement
// figures into tank-wide totals.
type TankConfig struct {
	Census        int    `mapstructure:"census"`
	Timezone      string `mapstructure:"timezone"`
	WeightSamples int    `mapstructure:"weightSamples"`
}

type NotifyConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Location resolves the configured tank timezone. Validate has already
// rejected unknown names, so the UTC fallback only covers zero-value configs.
func (t TankConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
// An empty configPath skips the file and relies on defaults and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration produced by Load with no file and no
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
// Every key is registered here so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", defaultStoreDriver)
	v.SetDefault("store.dsn", defaultStoreDSN)
	v.SetDefault("store.url", "")
	v.SetDefault("store.apiKey", "")
	v.SetDefault("store.timeout", defaultStoreTimeout)
	v.SetDefault("fetch.batchSize", defaultBatchSize)
	v.SetDefault("fetch.concurrency", defaultConcurrency)
	v.SetDefault("tank.census", defaultTankCensus)
	v.SetDefault("tank.timezone", defaultTankTimezone)
	v.SetDefault("tank.weightSamples", defaultWeightSamples)
	v.SetDefault("notify.kafka.enabled", defaultKafkaEnabled)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", defaultKafkaTopic)
	v.SetDefault("http.addr", defaultHTTPAddr)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

// Validate checks the cross-field constraints viper cannot express.
func Validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if cfg.Store.DSN == "" {
			return ErrEmptyStoreDSN
		}
	case DriverPostgREST:
		if cfg.Store.URL == "" {
			return ErrEmptyStoreURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, cfg.Store.Driver)
	}
	if cfg.Fetch.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if cfg.Fetch.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if cfg.Tank.Census <= 0 {
		return ErrInvalidTankCensus
	}
	if _, err := time.LoadLocation(cfg.Tank.Timezone); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTimezone, err)
	}
	if cfg.Tank.WeightSamples <= 0 {
		return ErrInvalidWeightSamples
	}
	if cfg.Notify.Kafka.Enabled {
		if len(cfg.Notify.Kafka.Brokers) == 0 {
			return ErrEmptyKafkaBrokers
		}
		if cfg.Notify.Kafka.Topic == "" {
			return ErrEmptyKafkaTopic
		}
	}
	return nil
}
