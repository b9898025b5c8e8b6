package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	LogLevel   string
	Server     ServerConfig
	Database   DatabaseConfig
	Documents  DocumentsConfig
	Firebase   FirebaseConfig
	Encryption EncryptionConfig
	Session    SessionConfig
	Plaid      PlaidConfig
	Dwolla     DwollaConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig
	TLS        TLSConfig
	Telemetry  TelemetryConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DocumentsConfig selects where user and bank documents live.
type DocumentsConfig struct {
	Backend          string // postgres | firestore | memory
	DatabaseID       string
	UserCollectionID string
	BankCollectionID string
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

type EncryptionConfig struct {
	Key string
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

type PlaidConfig struct {
	ClientID string
	Secret   string
	Env      string
}

type DwollaConfig struct {
	Key    string
	Secret string
	Env    string
}

type CacheConfig struct {
	Backend       string // memory | redis | memcached
	PageTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MemcachedAddr string
}

type RateLimitConfig struct {
	Enabled bool
	Backend string // memory | redis
	Limit   int
	Window  time.Duration
	// Peers whose X-Forwarded-For is believed (IPs or CIDRs).
	TrustedProxies []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

type WorkerConfig struct {
	Count              int
	QueueSize          int
	SessionSweepPeriod time.Duration
}

// LoadDotEnv reads .env outside production. A missing file is not an error.
func LoadDotEnv() {
	if strings.EqualFold(os.Getenv("ENV"), "production") {
		return
	}
	_ = godotenv.Load()
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	pageTTL, err := time.ParseDuration(getEnv("PAGE_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAGE_CACHE_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	rateWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	workerCount, err := strconv.Atoi(getEnv("WORKER_COUNT", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_COUNT: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnv("WORKER_QUEUE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_QUEUE_SIZE: %w", err)
	}
	sweepPeriod, err := time.ParseDuration(getEnv("SESSION_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "horizon"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "horizon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Documents: DocumentsConfig{
			Backend:          strings.ToLower(getEnv("DOCUMENT_STORE", "postgres")),
			DatabaseID:       getEnv("DOCUMENT_DATABASE_ID", "horizon"),
			UserCollectionID: getEnv("USER_COLLECTION_ID", "users"),
			BankCollectionID: getEnv("BANK_COLLECTION_ID", "banks"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "horizon-session"),
			TTL:        sessionTTL,
		},
		Plaid: PlaidConfig{
			ClientID: getEnv("PLAID_CLIENT_ID", ""),
			Secret:   getEnv("PLAID_SECRET", ""),
			Env:      getEnv("PLAID_ENV", "sandbox"),
		},
		Dwolla: DwollaConfig{
			Key:    getEnv("DWOLLA_KEY", ""),
			Secret: getEnv("DWOLLA_SECRET", ""),
			Env:    getEnv("DWOLLA_ENV", "sandbox"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			PageTTL:       pageTTL,
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			MemcachedAddr: getEnv("MEMCACHED_ADDR", "localhost:11211"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			Limit:   rateLimit,
			Window:  rateWindow,

			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "horizon.events"),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "horizon-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
		Worker: WorkerConfig{
			Count:              workerCount,
			QueueSize:          queueSize,
			SessionSweepPeriod: sweepPeriod,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(c.Encryption.Key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	required := []struct{ name, value string }{
		{"PLAID_CLIENT_ID", c.Plaid.ClientID},
		{"PLAID_SECRET", c.Plaid.Secret},
		{"DWOLLA_KEY", c.Dwolla.Key},
		{"DWOLLA_SECRET", c.Dwolla.Secret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	switch c.Documents.Backend {
	case "postgres":
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("DOCUMENT_STORE=memory is not allowed in production")
		}
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when DOCUMENT_STORE=firestore")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q", c.Documents.Backend)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "memcached":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	if c.Worker.Count <= 0 || c.Worker.QueueSize <= 0 {
		return fmt.Errorf("WORKER_COUNT and WORKER_QUEUE_SIZE must be positive")
	}
	if c.Worker.SessionSweepPeriod < 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must not be negative")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
