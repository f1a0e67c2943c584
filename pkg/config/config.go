// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (vocabulary, raw data sources, artifact storage, search index,
// Redis, Postgres, SQLite, Kafka, HTTP server, logging and metrics).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Data       DataConfig       `yaml:"data"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Search     SearchConfig     `yaml:"search"`
	Runs       RunsConfig       `yaml:"runs"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the prediction API.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of prediction requests a client may make per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig points at the local database file used when runs are not
// stored in PostgreSQL.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ArtifactsRebuilt string `yaml:"artifactsRebuilt"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// VocabularyConfig names the namespaces and predicates used to read the
// knowledge-graph dump.
type VocabularyConfig struct {
	OntologyNamespace string   `yaml:"ontologyNamespace"`
	ResourceNamespace string   `yaml:"resourceNamespace"`
	SubClassOf        string   `yaml:"subClassOf"`
	RootURI           string   `yaml:"rootURI"`
	ExcludedMarkers   []string `yaml:"excludedMarkers"`
}

// SourceConfig is one raw triple file and the character encoding it is
// stored in.
type SourceConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
}

// DataConfig lists the raw triple files. Relative paths are resolved
// against Dir.
type DataConfig struct {
	Dir                     string            `yaml:"dir"`
	Ontology                SourceConfig      `yaml:"ontology"`
	InstanceTypes           []SourceConfig    `yaml:"instanceTypes"`
	TransitiveInstanceTypes []SourceConfig    `yaml:"transitiveInstanceTypes"`
	LongAbstracts           SourceConfig      `yaml:"longAbstracts"`
	ShortAbstracts          SourceConfig      `yaml:"shortAbstracts"`
	AnchorText              SourceConfig      `yaml:"anchorText"`
	Datasets                map[string]string `yaml:"datasets"`
}

// Resolve returns src with its path joined onto Dir when it is relative.
func (d DataConfig) Resolve(src SourceConfig) SourceConfig {
	if src.Path == "" || filepath.IsAbs(src.Path) || d.Dir == "" {
		return src
	}
	src.Path = filepath.Join(d.Dir, src.Path)
	return src
}

// ArtifactsConfig selects where memoized JSON artifacts are persisted.
type ArtifactsConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// SearchConfig controls the search index, bulk loading and retrieval.
type SearchConfig struct {
	IndexDir         string        `yaml:"indexDir"`
	Analyzer         string        `yaml:"analyzer"`
	Mode             string        `yaml:"mode"`
	Similarity       string        `yaml:"similarity"`
	TopK             int           `yaml:"topK"`
	BodySource       string        `yaml:"bodySource"`
	BulkWorkers      int           `yaml:"bulkWorkers"`
	BulkQueueSize    int           `yaml:"bulkQueueSize"`
	BulkChunkSize    int           `yaml:"bulkChunkSize"`
	QueryTimeout     time.Duration `yaml:"queryTimeout"`
	QueryConcurrency int           `yaml:"queryConcurrency"`
	CorpusWorkers    int           `yaml:"corpusWorkers"`
}

// RunsConfig selects where ranked predictions are stored: "none",
// "postgres" or "sqlite".
type RunsConfig struct {
	Backend string `yaml:"backend"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Artifacts.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("artifacts.backend must be file or redis, got %q", c.Artifacts.Backend)
	}
	switch c.Runs.Backend {
	case "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("runs.backend must be none, postgres or sqlite, got %q", c.Runs.Backend)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.topK must be positive, got %d", c.Search.TopK)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit)
	}
	if c.Vocabulary.OntologyNamespace == "" || c.Vocabulary.SubClassOf == "" {
		return fmt.Errorf("vocabulary.ontologyNamespace and vocabulary.subClassOf are required")
	}
	return nil
}

// defaultConfig returns a Config with defaults matching the DBpedia 2016-10
// dump layout for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "answertypes",
			User:            "answertypes",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/runs.db",
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "answertypes-group",
			Topics: KafkaTopics{
				ArtifactsRebuilt: "artifacts.rebuilt",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Vocabulary: VocabularyConfig{
			OntologyNamespace: "http://dbpedia.org/ontology/",
			ResourceNamespace: "http://dbpedia.org/resource/",
			SubClassOf:        "http://www.w3.org/2000/01/rdf-schema#subClassOf",
			RootURI:           "http://www.w3.org/2002/07/owl#Thing",
			ExcludedMarkers:   []string{"Wikidata:"},
		},
		Data: DataConfig{
			Dir:      "data/dbpedia",
			Ontology: SourceConfig{Path: "dbpedia_2016-10.nt", Encoding: "UTF-8"},
			InstanceTypes: []SourceConfig{
				{Path: "instance_types_en.ttl", Encoding: "ISO-8859-1"},
				{Path: "instance_types_sdtyped_dbo_en.ttl", Encoding: "ISO-8859-1"},
			},
			TransitiveInstanceTypes: []SourceConfig{
				{Path: "instance_types_transitive_en.ttl", Encoding: "ISO-8859-1"},
			},
			LongAbstracts:  SourceConfig{Path: "long_abstracts_en.ttl", Encoding: "ISO-8859-1"},
			ShortAbstracts: SourceConfig{Path: "short_abstracts_en.ttl", Encoding: "ISO-8859-1"},
			AnchorText:     SourceConfig{Path: "anchor_text_en.ttl", Encoding: "ISO-8859-1"},
			Datasets: map[string]string{
				"train":      "data/train_set_fixed.json",
				"test":       "data/test_set_fixed.json",
				"validation": "data/validation_set_fixed.json",
			},
		},
		Artifacts: ArtifactsConfig{
			Backend: "file",
			Dir:     "data",
		},
		Search: SearchConfig{
			IndexDir:         "data/index",
			Analyzer:         "en",
			Mode:             "EC",
			Similarity:       "default",
			TopK:             100,
			BodySource:       "short",
			BulkWorkers:      12,
			BulkQueueSize:    6,
			BulkChunkSize:    5000,
			QueryTimeout:     120 * time.Second,
			QueryConcurrency: 8,
			CorpusWorkers:    8,
		},
		Runs: RunsConfig{
			Backend: "none",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads QT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QT_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QT_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QT_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QT_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QT_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("QT_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("QT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QT_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("QT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QT_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("QT_ARTIFACTS_BACKEND"); v != "" {
		cfg.Artifacts.Backend = v
	}
	if v := os.Getenv("QT_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("QT_SEARCH_INDEX_DIR"); v != "" {
		cfg.Search.IndexDir = v
	}
	if v := os.Getenv("QT_SEARCH_MODE"); v != "" {
		cfg.Search.Mode = v
	}
	if v := os.Getenv("QT_SEARCH_TOPK"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Search.TopK = k
		}
	}
	if v := os.Getenv("QT_RUNS_BACKEND"); v != "" {
		cfg.Runs.Backend = v
	}
	if v := os.Getenv("QT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
