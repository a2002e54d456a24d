package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"truthlens/internal/features"
	"truthlens/internal/linear"
	"truthlens/internal/train"
)

// Config is the application's configuration model.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ModelConfig struct {
	// Trained artifact (vocabulary + weights). If empty, read TRUTHLENS_MODEL_PATH
	ArtifactPath string `yaml:"artifactPath"`
	MetricsPath  string `yaml:"metricsPath"`
	// How often the server checks the artifact for a newer version; 0 disables
	ReloadInterval time.Duration `yaml:"reloadInterval"`
}

type TrainingConfig struct {
	TestFraction  float64 `yaml:"testFraction"`
	Seed          int64   `yaml:"seed"`
	Replicate     int     `yaml:"replicate"`
	C             float64 `yaml:"c"`
	MaxIterations int     `yaml:"maxIterations"`
	MaxFeatures   int     `yaml:"maxFeatures"`
	MaxNGram      int     `yaml:"maxNGram"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
	// Per-client request budget for /api/predict
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Artificial delay before answering a prediction
	SimulatedLatency time.Duration `yaml:"simulatedLatency"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	TTL       time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a sensible default configuration.
func Default() Config {
	t := train.DefaultOptions()
	return Config{
		Model: ModelConfig{
			ArtifactPath:   "./models/truthlens.json",
			MetricsPath:    "./models/metrics.json",
			ReloadInterval: 30 * time.Second,
		},
		Training: TrainingConfig{
			TestFraction:  t.TestFraction,
			Seed:          t.Seed,
			Replicate:     t.Replicate,
			C:             t.Linear.C,
			MaxIterations: t.Linear.MaxIterations,
			MaxFeatures:   t.Features.MaxFeatures,
			MaxNGram:      t.Features.MaxN,
		},
		Server:  ServerConfig{Addr: ":5000", RPS: 5, Burst: 10},
		Storage: StorageConfig{Driver: "sqlite", DSN: "./truthlens.db"},
		Cache:   CacheConfig{TTL: time.Hour},
		Logging: LoggingConfig{Level: "info"},
	}
}

// TrainOptions converts the training section into trainer options.
func (c Config) TrainOptions() train.Options {
	o := train.DefaultOptions()
	if c.Training.TestFraction > 0 && c.Training.TestFraction < 1 {
		o.TestFraction = c.Training.TestFraction
	}
	o.Seed = c.Training.Seed
	if c.Training.Replicate > 0 {
		o.Replicate = c.Training.Replicate
	}
	o.Linear = linear.DefaultOptions()
	if c.Training.C > 0 {
		o.Linear.C = c.Training.C
	}
	if c.Training.MaxIterations > 0 {
		o.Linear.MaxIterations = c.Training.MaxIterations
	}
	o.Features = features.DefaultOptions()
	if c.Training.MaxFeatures > 0 {
		o.Features.MaxFeatures = c.Training.MaxFeatures
	}
	if c.Training.MaxNGram > 0 {
		o.Features.MaxN = c.Training.MaxNGram
	}
	return o
}

// ResolveEnv overrides config fields from environment variables when set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("TRUTHLENS_MODEL_PATH"); v != "" {
		c.Model.ArtifactPath = v
	}
	if v := os.Getenv("TRUTHLENS_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TRUTHLENS_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			c.Server.Addr = ":" + v
		}
	}
}

// Load reads YAML config from path on top of the defaults. A .env file in the
// working directory, if present, is loaded into the environment first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the env-resolved defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ResolveEnv()
		return cfg, nil
	}
	return cfg, err
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
