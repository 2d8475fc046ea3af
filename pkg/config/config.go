// Package config loads and validates application configuration from YAML or
// TOML files with environment-variable overrides. It provides typed structs
// for every subsystem (Indexer, Tokenizer, Collection, Search, Catalog,
// Kafka, Redis, Server, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog" toml:"catalog"`
	Kafka      KafkaConfig      `yaml:"kafka" toml:"kafka"`
	Redis      RedisConfig      `yaml:"redis" toml:"redis"`
	Indexer    IndexerConfig    `yaml:"indexer" toml:"indexer"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer" toml:"tokenizer"`
	Collection CollectionConfig `yaml:"collection" toml:"collection"`
	Search     SearchConfig     `yaml:"search" toml:"search"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP query server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`
}

// CatalogConfig selects the SQL database that records completed builds.
// An empty Driver disables the catalog.
type CatalogConfig struct {
	Driver          string        `yaml:"driver" toml:"driver"`
	DSN             string        `yaml:"dsn" toml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns" toml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" toml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" toml:"connMaxLifetime"`
}

// KafkaConfig holds Kafka broker and topic settings. No brokers disables
// build notifications.
type KafkaConfig struct {
	Brokers         []string    `yaml:"brokers" toml:"brokers"`
	ConsumerGroup   string      `yaml:"consumerGroup" toml:"consumerGroup"`
	Topics          KafkaTopics `yaml:"topics" toml:"topics"`
	PublishAttempts int         `yaml:"publishAttempts" toml:"publishAttempts"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete" toml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the query cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" toml:"addr"`
	Password string        `yaml:"password" toml:"password"`
	DB       int           `yaml:"db" toml:"db"`
	PoolSize int           `yaml:"poolSize" toml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL" toml:"cacheTTL"`
}

// IndexerConfig controls where index stores are written.
type IndexerConfig struct {
	DataDir string `yaml:"dataDir" toml:"dataDir"`
	Adapter string `yaml:"adapter" toml:"adapter"`
}

// TokenizerConfig controls text analysis. The same settings must be used at
// index and query time; the builder records them in the store manifest.
type TokenizerConfig struct {
	StopWords      []string `yaml:"stopWords" toml:"stopWords" json:"stop_words"`
	Stemmer        string   `yaml:"stemmer" toml:"stemmer" json:"stemmer"`
	MinTokenLength int      `yaml:"minTokenLength" toml:"minTokenLength" json:"min_token_length"`
}

// CollectionConfig names the fields produced by the collection adapters.
type CollectionConfig struct {
	WholeFile WholeFileConfig `yaml:"wholeFile" toml:"wholeFile"`
	Delimited DelimitedConfig `yaml:"delimited" toml:"delimited"`
}

// WholeFileConfig holds the field names of the whole-file adapter.
type WholeFileConfig struct {
	ContentField  string `yaml:"contentField" toml:"contentField"`
	FileNameField string `yaml:"fileNameField" toml:"fileNameField"`
	FilePathField string `yaml:"filePathField" toml:"filePathField"`
	Recursive     bool   `yaml:"recursive" toml:"recursive"`
}

// DelimitedConfig holds the record delimiters and the field names they
// introduce. Delimiters[0] starts a record; Fields[i] receives the text that
// follows Delimiters[i].
type DelimitedConfig struct {
	Delimiters []string `yaml:"delimiters" toml:"delimiters"`
	Fields     []string `yaml:"fields" toml:"fields"`
}

// SearchConfig controls query execution.
type SearchConfig struct {
	DefaultLimit        int           `yaml:"defaultLimit" toml:"defaultLimit"`
	MaxResults          int           `yaml:"maxResults" toml:"maxResults"`
	Scorer              string        `yaml:"scorer" toml:"scorer"`
	LengthNormalization bool          `yaml:"lengthNormalization" toml:"lengthNormalization"`
	Workers             int           `yaml:"workers" toml:"workers"`
	QueryTimeout        time.Duration `yaml:"queryTimeout" toml:"queryTimeout"`
	DefaultField        string        `yaml:"defaultField" toml:"defaultField"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

// Load reads a YAML or TOML config file (if provided) and applies
// environment-variable overrides. The format is chosen by file extension;
// anything other than .toml is parsed as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config suitable for local single-machine use: no
// catalog, no Kafka, no Redis.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "fieldsearch",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
			PublishAttempts: 3,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir: "data/index",
			Adapter: "whole_file",
		},
		Tokenizer: TokenizerConfig{
			Stemmer:        "none",
			MinTokenLength: 1,
		},
		Collection: CollectionConfig{
			WholeFile: WholeFileConfig{
				ContentField:  "content",
				FileNameField: "filename",
				FilePathField: "filepath",
			},
			Delimited: DelimitedConfig{
				Delimiters: []string{".I", ".T", ".A", ".B", ".W"},
				Fields:     []string{"identifier number", "title", "author", "affiliation", "abstract"},
			},
		},
		Search: SearchConfig{
			DefaultLimit:        10,
			MaxResults:          1000,
			Scorer:              "tfidf",
			LengthNormalization: true,
			Workers:             4,
			QueryTimeout:        10 * time.Second,
			DefaultField:        "content",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate checks cross-field constraints that yaml/toml decoding cannot.
func (c *Config) Validate() error {
	d := c.Collection.Delimited
	if len(d.Delimiters) == 0 {
		return fmt.Errorf("collection.delimited.delimiters must not be empty")
	}
	if len(d.Delimiters) != len(d.Fields) {
		return fmt.Errorf("collection.delimited: %d delimiters but %d fields",
			len(d.Delimiters), len(d.Fields))
	}
	for i, delim := range d.Delimiters {
		if strings.TrimSpace(delim) == "" {
			return fmt.Errorf("collection.delimited.delimiters[%d] is blank", i)
		}
	}
	switch c.Tokenizer.Stemmer {
	case "", "none", "suffix", "snowball":
	default:
		return fmt.Errorf("tokenizer.stemmer: unknown stemmer %q", c.Tokenizer.Stemmer)
	}
	switch c.Search.Scorer {
	case "tfidf", "bm25":
	default:
		return fmt.Errorf("search.scorer: unknown scorer %q", c.Search.Scorer)
	}
	switch c.Catalog.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("catalog.driver: unknown driver %q", c.Catalog.Driver)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.defaultLimit must be positive")
	}
	return nil
}

// applyEnvOverrides reads FS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FS_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("FS_INDEXER_ADAPTER"); v != "" {
		cfg.Indexer.Adapter = v
	}
	if v := os.Getenv("FS_TOKENIZER_STEMMER"); v != "" {
		cfg.Tokenizer.Stemmer = v
	}
	if v := os.Getenv("FS_SEARCH_SCORER"); v != "" {
		cfg.Search.Scorer = v
	}
	if v := os.Getenv("FS_SEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Workers = n
		}
	}
	if v := os.Getenv("FS_CATALOG_DRIVER"); v != "" {
		cfg.Catalog.Driver = v
	}
	if v := os.Getenv("FS_CATALOG_DSN"); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := os.Getenv("FS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FS_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
