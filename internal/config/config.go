package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Log       Log       `yaml:"log"`
	Scheduler Scheduler `yaml:"scheduler"`
	Publisher Publisher `yaml:"publisher"`
	Slots     Slots     `yaml:"slots"`
	LinkedIn  LinkedIn  `yaml:"linkedin"`
	X         X         `yaml:"x"`
	S3        S3        `yaml:"s3"`
	Queue     Queue     `yaml:"queue"`
	Events    Events    `yaml:"events"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL" env-required:"true"`

	// Connection pool settings
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`

	// MigrateOnStart applies the embedded schema when the API starts
	MigrateOnStart bool `yaml:"migrate_on_start" env:"DB_MIGRATE_ON_START" env-default:"false"`
}

// Log holds logging configuration
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"INFO"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Scheduler holds the publisher trigger configuration
type Scheduler struct {
	Enabled    bool   `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Spec       string `yaml:"spec" env:"SCHEDULER_SPEC" env-default:"@every 1m"`
	RunOnStart bool   `yaml:"run_on_start" env:"SCHEDULER_RUN_ON_START" env-default:"true"`
}

// Publisher holds publishing and bulk scheduling tunables
type Publisher struct {
	MaxRetries   int           `yaml:"max_retries" env:"PUBLISH_MAX_RETRIES" env-default:"3"`
	Delay        time.Duration `yaml:"delay" env:"PUBLISH_DELAY" env-default:"2s"`
	ClaimLease   time.Duration `yaml:"claim_lease" env:"PUBLISH_CLAIM_LEASE" env-default:"2m"`
	BatchSize    int           `yaml:"batch_size" env:"PUBLISH_BATCH_SIZE" env-default:"100"`
	BulkBuffer   time.Duration `yaml:"bulk_buffer" env:"BULK_BUFFER" env-default:"5m"`
	BulkLimit    int           `yaml:"bulk_limit" env:"BULK_DEFAULT_LIMIT" env-default:"10"`
	BulkMaxLimit int           `yaml:"bulk_max_limit" env:"BULK_MAX_LIMIT" env-default:"50"`
}

// Slots holds timeslot selector defaults
type Slots struct {
	HorizonDays        int    `yaml:"horizon_days" env:"SLOTS_HORIZON_DAYS" env-default:"60"`
	DefaultLeadMinutes int    `yaml:"default_lead_minutes" env:"SLOTS_DEFAULT_LEAD_MINUTES" env-default:"30"`
	DefaultTimezone    string `yaml:"default_timezone" env:"SLOTS_DEFAULT_TIMEZONE" env-default:"UTC"`
}

// LinkedIn holds LinkedIn API configuration
type LinkedIn struct {
	BaseURL string        `yaml:"base_url" env:"LINKEDIN_BASE_URL" env-default:"https://api.linkedin.com"`
	Timeout time.Duration `yaml:"timeout" env:"LINKEDIN_TIMEOUT" env-default:"30s"`
}

// X holds X API configuration
type X struct {
	BaseURL string        `yaml:"base_url" env:"X_BASE_URL" env-default:"https://api.twitter.com"`
	Timeout time.Duration `yaml:"timeout" env:"X_TIMEOUT" env-default:"30s"`
}

// S3 holds S3/MinIO storage configuration. Media upload is disabled when Endpoint is empty.
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/media"`
}

// Queue holds the exact-time publish queue configuration. Disabled when RedisAddr is empty.
type Queue struct {
	RedisAddr     string `yaml:"redis_addr" env:"QUEUE_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"QUEUE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"QUEUE_REDIS_DB" env-default:"0"`
	Concurrency   int    `yaml:"concurrency" env:"QUEUE_CONCURRENCY" env-default:"5"`
}

// Enabled reports whether the queue is configured
func (q Queue) Enabled() bool {
	return q.RedisAddr != ""
}

// Events holds domain event publishing configuration. Disabled when AMQPURL is empty.
type Events struct {
	AMQPURL string `yaml:"amqp_url" env:"EVENTS_AMQP_URL"`
}

// Enabled reports whether event publishing is configured
func (e Events) Enabled() bool {
	return e.AMQPURL != ""
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Load loads configuration from environment, reading a .env file first if one exists
func Load() (Config, error) {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file; environment variables override it
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
