// Package config loads the quoting engine's process configuration from a
// YAML file laid over built-in defaults, the way
// PricingControllerConfig/FallbackConfig are assembled in the teacher
// service. Environment variables do not override file values; the only one
// read here is the distance API key variable (see DistanceAPIKey).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration.
type Config struct {
	HTTP struct {
		HotPathAddr string `yaml:"hotPathAddr"` // gorilla/mux controller (§6.4)
		AdminAddr   string `yaml:"adminAddr"`   // gin admin/CRUD router
	} `yaml:"http"`

	Catalog struct {
		UTSFDir          string `yaml:"utsfDir"`
		ZoneFile         string `yaml:"zoneFile"`
		CentroidFile     string `yaml:"centroidFile"`
		ReloadCron       string `yaml:"reloadCron"` // robfig/cron expression
	} `yaml:"catalog"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	Postgres struct {
		DSN string `yaml:"dsn"` // audit trail store
	} `yaml:"postgres"`

	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Distance struct {
		BaseURL    string `yaml:"baseURL"`
		APIKeyEnv  string `yaml:"apiKeyEnv"` // env var (or Vault key) holding the API key
		TimeoutMS  int    `yaml:"timeoutMs"`
	} `yaml:"distance"`

	Vault struct {
		Address string `yaml:"address"` // empty disables Vault; secrets come from env
	} `yaml:"vault"`

	Quote struct {
		CarrierBatchSize int `yaml:"carrierBatchSize"` // default 8, spec.md §5
		CacheTTLSeconds  int `yaml:"cacheTtlSeconds"`  // default 300, spec.md §4.8
	} `yaml:"quote"`
}

// Default returns the configuration used when no file is supplied —
// suitable for local development and unit tests.
func Default() *Config {
	c := &Config{}
	c.HTTP.HotPathAddr = ":8080"
	c.HTTP.AdminAddr = ":8081"
	c.Catalog.UTSFDir = "./data/utsf"
	c.Catalog.ZoneFile = "./data/pincode_zones.json"
	c.Catalog.CentroidFile = "./data/pincode_centroids.json"
	c.Catalog.ReloadCron = "*/15 * * * *" // every 15 minutes
	c.Mongo.URI = "mongodb://localhost:27017"
	c.Mongo.Database = "freightquote"
	// URL form: both gorm's postgres driver and golang-migrate accept it.
	c.Postgres.DSN = "postgres://freightquote@localhost:5432/freightquote_audit?sslmode=disable"
	c.Redis.Addr = "localhost:6379"
	c.NATS.URL = "nats://localhost:4222"
	c.NATS.Subject = "freightquote.cache.invalidate"
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.Topic = "freightquote.smartshield"
	c.Distance.BaseURL = "https://distance.internal"
	c.Distance.APIKeyEnv = "DISTANCE_API_KEY"
	c.Distance.TimeoutMS = 8000
	c.Quote.CarrierBatchSize = 8
	c.Quote.CacheTTLSeconds = 300
	return c
}

// Load reads YAML from path and overlays it on Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DistanceAPIKey returns the distance-service API key from the environment
// variable named by Distance.APIKeyEnv. It does not call Vault itself: when
// Vault.Address is set, cmd/quoteserver copies the Vault secret into that
// variable at boot, so a missing Vault deployment degrades to the documented
// API_KEY_MISSING error rather than a boot-time panic.
func (c *Config) DistanceAPIKey() string {
	return os.Getenv(c.Distance.APIKeyEnv)
}
