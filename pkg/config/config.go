package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"StockPred/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		// Aggregated error logs are published here when Kafka is configured.
		CollectInterval  time.Duration `yaml:"collect_interval"`
		CollectThreshold int           `yaml:"collect_threshold"`
		CollectVolatile  []string      `yaml:"collect_volatile"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Topics       struct {
			Predictions   string `yaml:"predictions"`
			TrainRequests string `yaml:"train_requests"`
			Logs          string `yaml:"logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Models   ModelsConfig `yaml:"models"`
	Calendar struct {
		ExtraClosures []string `yaml:"extra_closures"`
	} `yaml:"calendar"`
	Cache struct {
		PredictionTTL time.Duration `yaml:"prediction_ttl"`
		MemorySize    int           `yaml:"memory_size"`
	} `yaml:"cache"`
	Queue struct {
		Name        string        `yaml:"name"`
		Concurrency int           `yaml:"concurrency"`
		MaxRetries  int           `yaml:"max_retries"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		JobTimeout  time.Duration `yaml:"job_timeout"`
	} `yaml:"queue"`
	RateLimit struct {
		TrainPerMinute float64 `yaml:"train_per_minute"`
		TrainBurst     int     `yaml:"train_burst"`
	} `yaml:"rate_limit"`
}

// ModelsConfig controls training and artifact storage.
type ModelsConfig struct {
	Dir       string          `yaml:"dir"`
	CSVDir    string          `yaml:"csv_dir"`
	Symbols   []string        `yaml:"symbols"`
	Lookback  int             `yaml:"lookback"`
	Workers   int             `yaml:"workers"`
	Pooled    bool            `yaml:"pooled"`
	LockTTL   time.Duration   `yaml:"lock_ttl"`
	Profiles  []ProfileConfig `yaml:"profiles"`
	Boosting  BoostingConfig  `yaml:"boosting"`
	ModelName string          `yaml:"model_name"`
}

type ProfileConfig struct {
	Name            string  `yaml:"name"`
	HorizonDays     int     `yaml:"horizon_days"`
	ReturnThreshold float64 `yaml:"return_threshold"`
}

// BoostingConfig overrides shared boosting knobs; zero values keep the built-in defaults.
type BoostingConfig struct {
	Rounds        int     `yaml:"rounds"`
	LearningRate  float64 `yaml:"learning_rate"`
	MaxDepth      int     `yaml:"max_depth"`
	MaxLeaves     int     `yaml:"max_leaves"`
	Subsample     float64 `yaml:"subsample"`
	ColSample     float64 `yaml:"colsample"`
	EarlyStopping int     `yaml:"early_stopping"`
	Seed          int64   `yaml:"seed"`
}

// Default returns a configuration usable for local, storage-less runs.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.CollectInterval = 30 * time.Second
	c.Log.CollectThreshold = 100
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Topics.Predictions = "stockpred.predictions"
	c.Kafka.Topics.TrainRequests = "stockpred.train-requests"
	c.Kafka.Topics.Logs = "stockpred.logs"
	c.Kafka.Consumer.GroupID = "stockpred"
	c.Kafka.Consumer.Workers = 2
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "stockpred"
	c.Redis.Port = 6379
	c.Redis.Prefix = "stockpred"
	c.Models.Dir = "models"
	c.Models.Lookback = 1000
	c.Models.Workers = 2
	c.Models.Pooled = true
	c.Models.LockTTL = 30 * time.Minute
	c.Models.ModelName = "gbdt-ensemble"
	c.Cache.PredictionTTL = 15 * time.Minute
	c.Cache.MemorySize = 1000
	c.Queue.Name = "training"
	c.Queue.Concurrency = 1
	c.Queue.MaxRetries = 2
	c.Queue.RetryDelay = time.Minute
	c.Queue.JobTimeout = time.Hour
	c.RateLimit.TrainPerMinute = 2
	c.RateLimit.TrainBurst = 2
	return &c
}

// Load reads a YAML file over Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("STOCKPRED_SYMBOLS"); v != "" {
		c.Models.Symbols = util.SplitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		if ok {
			c.Redis.Port = util.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("MODEL_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}
	if c.Models.Lookback < 150 {
		return fmt.Errorf("models.lookback must be >= 150, got %d", c.Models.Lookback)
	}
	if c.Models.Workers < 1 {
		return fmt.Errorf("models.workers must be >= 1")
	}
	for _, p := range c.Models.Profiles {
		if p.Name == "" || p.HorizonDays <= 0 {
			return fmt.Errorf("models.profiles: invalid profile %+v", p)
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topics.Predictions == "" {
		return fmt.Errorf("kafka.topics.predictions is required when brokers are set")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}
	for _, d := range c.Calendar.ExtraClosures {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("calendar.extra_closures: bad date %q", d)
		}
	}
	return nil
}
