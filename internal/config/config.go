// Package config loads server settings from defaults, an optional YAML
// file, environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string        `yaml:"port"`
	DatasetPath    string        `yaml:"dataset_path"`
	LabelColumn    string        `yaml:"label_column"`
	Neighbors      int           `yaml:"neighbors"`
	ProfileTTL     time.Duration `yaml:"profile_ttl"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	WatchDataset   bool          `yaml:"watch_dataset"`
	PredictorURL   string        `yaml:"predictor_url"`
	PredictorCmd   string        `yaml:"predictor_command"`
	PredictTimeout time.Duration `yaml:"predictor_timeout"`
	StoreDriver    string        `yaml:"store_driver"`
	StoreDSN       string        `yaml:"store_dsn"`
	UploadLimit    int64         `yaml:"upload_limit"`
	BatchWorkers   int           `yaml:"batch_workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxInFlight    int           `yaml:"max_in_flight"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Port:           "8001",
		DatasetPath:    "training_data.csv",
		LabelColumn:    "koi_disposition",
		Neighbors:      5,
		ProfileTTL:     5 * time.Minute,
		WatchDebounce:  500 * time.Millisecond,
		WatchDataset:   true,
		PredictTimeout: 10 * time.Second,
		StoreDriver:    "none",
		UploadLimit:    10 << 20,
		BatchWorkers:   4,
		RequestTimeout: 30 * time.Second,
		MaxInFlight:    100,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Sanitize replaces out-of-range values with defaults and clamps K.
func (c *Config) Sanitize() {
	def := Default()
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if c.Port == "" {
		c.Port = def.Port
	}
	if strings.TrimSpace(c.DatasetPath) == "" {
		c.DatasetPath = def.DatasetPath
	}
	if strings.TrimSpace(c.LabelColumn) == "" {
		c.LabelColumn = def.LabelColumn
	}
	if c.Neighbors <= 0 {
		c.Neighbors = def.Neighbors
	}
	if c.Neighbors > 100 {
		c.Neighbors = 100
	}
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = def.ProfileTTL
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = def.WatchDebounce
	}
	if c.PredictTimeout <= 0 {
		c.PredictTimeout = def.PredictTimeout
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = def.StoreDriver
	}
	if c.UploadLimit <= 0 {
		c.UploadLimit = def.UploadLimit
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = def.BatchWorkers
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = def.MaxInFlight
	}
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = def.AllowedOrigins
	}
}

// LoadFile merges a YAML file over c. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides c from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATASET_PATH", &c.DatasetPath)
	str("LABEL_COLUMN", &c.LabelColumn)
	str("PREDICTOR_URL", &c.PredictorURL)
	str("PREDICTOR_COMMAND", &c.PredictorCmd)
	str("STORE_DRIVER", &c.StoreDriver)
	str("STORE_DSN", &c.StoreDSN)

	if v := strings.TrimSpace(getenv("NEIGHBORS_K")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEIGHBORS_K: %w", err)
		}
		c.Neighbors = n
	}
	if v := strings.TrimSpace(getenv("BATCH_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_WORKERS: %w", err)
		}
		c.BatchWorkers = n
	}
	if v := strings.TrimSpace(getenv("WATCH_DATASET")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WATCH_DATASET: %w", err)
		}
		c.WatchDataset = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PROFILE_TTL", &c.ProfileTTL},
		{"WATCH_DEBOUNCE", &c.WatchDebounce},
		{"PREDICTOR_TIMEOUT", &c.PredictTimeout},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, d := range durations {
		v := strings.TrimSpace(getenv(d.key))
		if v == "" {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = dur
	}

	if v := strings.TrimSpace(getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// Load builds the configuration for the server binary from args
// (without the program name) and the environment.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", getenv("CONFIG_FILE"), "Path to optional YAML config file")
	port := fs.String("port", "", "Port to listen on")
	dataset := fs.String("dataset", "", "Reference dataset CSV path")
	label := fs.String("label-column", "", "Label column used for neighbour voting")
	k := fs.Int("k", 0, "Number of nearest neighbours")
	storeDriver := fs.String("store", "", "Prediction store driver (none|sqlite|postgres|bolt)")
	storeDSN := fs.String("store-dsn", "", "Prediction store DSN or file path")
	predictorURL := fs.String("predictor-url", "", "Base URL of the model server")
	predictorCmd := fs.String("predictor-command", "", "Classifier command, e.g. \"python ai/predict.py\"")
	noWatch := fs.Bool("no-watch", false, "Disable dataset hot reload")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if err := cfg.LoadFile(*configPath); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "dataset":
			cfg.DatasetPath = *dataset
		case "label-column":
			cfg.LabelColumn = *label
		case "k":
			cfg.Neighbors = *k
		case "store":
			cfg.StoreDriver = *storeDriver
		case "store-dsn":
			cfg.StoreDSN = *storeDSN
		case "predictor-url":
			cfg.PredictorURL = *predictorURL
		case "predictor-command":
			cfg.PredictorCmd = *predictorCmd
		case "no-watch":
			cfg.WatchDataset = !*noWatch
		}
	})

	cfg.Sanitize()
	return cfg, nil
}
