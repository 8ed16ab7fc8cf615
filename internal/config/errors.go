package config

import "errors"

var (
	ErrReadingConfigFile    = errors.New("failed to read config file")
	ErrUnmarshallingConfig  = errors.New("failed to unmarshal config")
	ErrConfigFileMissing    = errors.New("config file not found")
	ErrUnknownStoreDriver   = errors.New("store driver must be one of sqlite, postgres, postgrest")
	ErrEmptyStoreDSN        = errors.New("store dsn cannot be empty for sql drivers")
	ErrEmptyStoreURL        = errors.New("store url cannot be empty for the postgrest driver")
	ErrInvalidBatchSize     = errors.New("fetch batchSize must be positive")
	ErrInvalidConcurrency   = errors.New("fetch concurrency must be at least 1")
	ErrInvalidTankCensus    = errors.New("tank census must be positive")
	ErrInvalidTimezone      = errors.New("tank timezone is not a known IANA location")
	ErrInvalidWeightSamples = errors.New("tank weightSamples must be positive")
	ErrEmptyKafkaBrokers    = errors.New("kafka brokers list cannot be empty when kafka notifications are enabled")
	ErrEmptyKafkaTopic      = errors.New("kafka topic cannot be empty when kafka notifications are enabled")
)
