// Package config loads and validates engine configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// index, the retrieval models, relevance feedback, learning to rank, and the
// optional serving and persistence backends.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NumFeatures is the number of learning-to-rank feature slots.
const NumFeatures = 18

// Config is the top-level application configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Queries   QueriesConfig   `yaml:"queries"`
	Output    OutputConfig    `yaml:"output"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Letor     LetorConfig     `yaml:"letor"`
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// IndexConfig points at the directory holding index segments.
type IndexConfig struct {
	DataDir string `yaml:"dataDir"`
}

// RetrievalConfig selects the ranking model and its parameters.
type RetrievalConfig struct {
	Algorithm string      `yaml:"algorithm"`
	BM25      BM25Config  `yaml:"bm25"`
	Indri     IndriConfig `yaml:"indri"`
}

type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
	K3 float64 `yaml:"k3"`
}

type IndriConfig struct {
	Mu     float64 `yaml:"mu"`
	Lambda float64 `yaml:"lambda"`
}

// QueriesConfig names the query file, one `qid:query` per line.
type QueriesConfig struct {
	File string `yaml:"file"`
}

// OutputConfig controls the TREC result file.
type OutputConfig struct {
	TrecEvalPath string `yaml:"trecEvalPath"`
	RunID        string `yaml:"runId"`
	MaxResults   int    `yaml:"maxResults"`
}

// FeedbackConfig controls pseudo-relevance-feedback query expansion.
type FeedbackConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Docs               int     `yaml:"docs"`
	Terms              int     `yaml:"terms"`
	Mu                 float64 `yaml:"mu"`
	OrigWeight         float64 `yaml:"origWeight"`
	InitialRankingFile string  `yaml:"initialRankingFile"`
	ExpansionQueryFile string  `yaml:"expansionQueryFile"`
}

// LetorConfig holds the learning-to-rank file locations and the external
// ranker settings.
type LetorConfig struct {
	TrainingQueryFile          string  `yaml:"trainingQueryFile"`
	TrainingQrelsFile          string  `yaml:"trainingQrelsFile"`
	TrainingFeatureVectorsFile string  `yaml:"trainingFeatureVectorsFile"`
	PageRankFile               string  `yaml:"pageRankFile"`
	FeatureDisable             []int   `yaml:"featureDisable"`
	SVMRankLearnPath           string  `yaml:"svmRankLearnPath"`
	SVMRankClassifyPath        string  `yaml:"svmRankClassifyPath"`
	SVMRankParamC              float64 `yaml:"svmRankParamC"`
	SVMRankModelFile           string  `yaml:"svmRankModelFile"`
	TestingFeatureVectorsFile  string  `yaml:"testingFeatureVectorsFile"`
	TestingDocumentScores      string  `yaml:"testingDocumentScores"`
	RerankDepth                int     `yaml:"rerankDepth"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RateLimit       float64       `yaml:"rateLimit"`
	Burst           int           `yaml:"burst"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	QueryTopic string   `yaml:"queryTopic"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
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
// overrides. It returns a Config populated with defaults for any missing
// values.
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

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir: "data/index",
		},
		Retrieval: RetrievalConfig{
			Algorithm: "bm25",
			BM25:      BM25Config{K1: 1.2, B: 0.75, K3: 0},
			Indri:     IndriConfig{Mu: 2500, Lambda: 0.4},
		},
		Output: OutputConfig{
			TrecEvalPath: "output.teIn",
			RunID:        "run-1",
			MaxResults:   100,
		},
		Feedback: FeedbackConfig{
			Docs:       10,
			Terms:      10,
			Mu:         0,
			OrigWeight: 0.5,
		},
		Letor: LetorConfig{
			SVMRankParamC: 0.001,
			RerankDepth:   100,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			RateLimit:       50,
			Burst:           100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "qryeval",
			User:            "qryeval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:    []string{"localhost:9092"},
			QueryTopic: "query-events",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate checks cross-field constraints that YAML decoding cannot express.
// Ranking-model parameter ranges are checked when the model is built.
func (c *Config) Validate() error {
	switch c.Retrieval.Algorithm {
	case "unrankedboolean", "rankedboolean", "bm25", "indri", "letor":
	default:
		return fmt.Errorf("unknown retrieval algorithm %q", c.Retrieval.Algorithm)
	}
	if c.Output.MaxResults <= 0 {
		return fmt.Errorf("output.maxResults must be positive, got %d", c.Output.MaxResults)
	}
	if c.Feedback.Enabled {
		if c.Feedback.Docs <= 0 || c.Feedback.Terms <= 0 {
			return fmt.Errorf("feedback.docs and feedback.terms must be positive")
		}
		if c.Feedback.Mu < 0 {
			return fmt.Errorf("feedback.mu must be >= 0, got %g", c.Feedback.Mu)
		}
		if c.Feedback.OrigWeight < 0 || c.Feedback.OrigWeight > 1 {
			return fmt.Errorf("feedback.origWeight must be in [0,1], got %g", c.Feedback.OrigWeight)
		}
	}
	for _, slot := range c.Letor.FeatureDisable {
		if slot < 1 || slot > NumFeatures {
			return fmt.Errorf("letor.featureDisable slot %d outside 1..%d", slot, NumFeatures)
		}
	}
	return nil
}

// applyEnvOverrides reads QE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QE_INDEX_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("QE_RETRIEVAL_ALGORITHM"); v != "" {
		cfg.Retrieval.Algorithm = strings.ToLower(v)
	}
	if v := os.Getenv("QE_QUERY_FILE"); v != "" {
		cfg.Queries.File = v
	}
	if v := os.Getenv("QE_OUTPUT_PATH"); v != "" {
		cfg.Output.TrecEvalPath = v
	}
	if v := os.Getenv("QE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("QE_SVMRANK_LEARN"); v != "" {
		cfg.Letor.SVMRankLearnPath = v
	}
	if v := os.Getenv("QE_SVMRANK_CLASSIFY"); v != "" {
		cfg.Letor.SVMRankClassifyPath = v
	}
}
