// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Corpus, Weights, Modelling, Redis, Kafka,
// Postgres, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Weights   WeightsConfig   `yaml:"weights"`
	Modelling ModellingConfig `yaml:"modelling"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CorpusConfig points at the background-corpus dataset files.
type CorpusConfig struct {
	LabelPath string `yaml:"labelPath"`
	StatsPath string `yaml:"statsPath"`
}

// WeightsConfig holds the feature weight vector used for term scoring and an
// optional nested field weight map. When Fields is non-empty the formatter
// runs in multi-field mode, repeating weighted terms once per search field.
type WeightsConfig struct {
	Features map[string]float64 `yaml:"features"`
	Fields   map[string]float64 `yaml:"fields"`
}

// ModellingConfig controls ranking cutoff and session time decay.
type ModellingConfig struct {
	TopN       int     `yaml:"topN"`
	DecayBase  float64 `yaml:"decayBase"`
	DecayScale float64 `yaml:"decayScale"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters for analytics
// snapshot persistence.
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
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development. The decay defaults halve a query's contribution roughly every
// three hours of session inactivity.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			LabelPath: "nlwiki-latest/label.csv",
			StatsPath: "nlwiki-latest/stats.csv",
		},
		Weights: WeightsConfig{
			Features: map[string]float64{"text_idf": 1.0},
		},
		Modelling: ModellingConfig{
			TopN:       25,
			DecayBase:  0.81,
			DecayScale: 1.0 / 3600,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "querymodelling-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "query-analytics-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "querymodelling",
			User:            "querymodelling",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
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

// validate rejects configurations the modeller cannot run with.
func validate(cfg *Config) error {
	if cfg.Modelling.TopN <= 0 {
		return fmt.Errorf("modelling.topN must be positive, got %d", cfg.Modelling.TopN)
	}
	if cfg.Modelling.DecayBase <= 0 || cfg.Modelling.DecayBase > 1 {
		return fmt.Errorf("modelling.decayBase must be in (0, 1], got %g", cfg.Modelling.DecayBase)
	}
	if cfg.Modelling.DecayScale < 0 {
		return fmt.Errorf("modelling.decayScale must be non-negative, got %g", cfg.Modelling.DecayScale)
	}
	if len(cfg.Weights.Features) == 0 {
		return fmt.Errorf("weights.features must contain at least one feature weight")
	}
	for field, w := range cfg.Weights.Fields {
		if w < 0 {
			return fmt.Errorf("weights.fields[%s] must be non-negative, got %g", field, w)
		}
	}
	return nil
}

// applyEnvOverrides reads QM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QM_CORPUS_LABEL_PATH"); v != "" {
		cfg.Corpus.LabelPath = v
	}
	if v := os.Getenv("QM_CORPUS_STATS_PATH"); v != "" {
		cfg.Corpus.StatsPath = v
	}
	if v := os.Getenv("QM_MODELLING_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Modelling.TopN = n
		}
	}
	if v := os.Getenv("QM_MODELLING_DECAY_BASE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Modelling.DecayBase = f
		}
	}
	if v := os.Getenv("QM_MODELLING_DECAY_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Modelling.DecayScale = f
		}
	}
	if v := os.Getenv("QM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
