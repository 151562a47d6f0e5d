package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" envDefault:"fern"`
	Port                          int      `env:"PORT" envDefault:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" envDefault:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" envDefault:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" envDefault:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" envDefault:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" envDefault:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" envDefault:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" envDefault:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" envDefault:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" envDefault:"GET"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" envDefault:"5"`

	// PostgreSQL (source tables and output tables)
	DatabaseDriver                string        `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" envDefault:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" envDefault:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" envDefault:""`
	DatabasePassword              string        `env:"DB_PASSWORD" envDefault:""`
	DatabaseName                  string        `env:"DB_NAME" envDefault:"fern"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" envDefault:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" envDefault:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" envDefault:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" envDefault:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" envDefault:"true"`

	// Graph Database (Memgraph / Neo4j projection, optional)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" envDefault:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" envDefault:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" envDefault:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" envDefault:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" envDefault:""`

	// Kafka Producer (flag events, optional)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaFlagTopic    string   `env:"KAFKA_FLAG_TOPIC" envDefault:"customer-flag-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" envDefault:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" envDefault:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" envDefault:"snappy"`

	// Redis (pipeline run lock, optional)
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RunLockTTL    time.Duration `env:"RUN_LOCK_TTL" envDefault:"30m"`

	// Tracing
	TracingEnabled  bool          `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string        `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
	TracingProtocol string        `env:"TRACING_PROTOCOL" envDefault:"grpc"`
	TracingInsecure bool          `env:"TRACING_INSECURE" envDefault:"true"`
	TracingTimeout  time.Duration `env:"TRACING_TIMEOUT" envDefault:"10s"`

	// Authentication (OIDC bearer tokens on the data API, optional)
	AuthEnabled   bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" envDefault:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" envDefault:""`

	// Metrics
	MetricsPushGatewayURL string `env:"METRICS_PUSHGATEWAY_URL" envDefault:""`

	// Pipeline tunables
	SourceReadTimeout        time.Duration `env:"SOURCE_READ_TIMEOUT" envDefault:"60s"`
	MemberIDGap              int64         `env:"MEMBER_ID_GAP" envDefault:"3"`
	CheckinWindowMinutes     int           `env:"CHECKIN_WINDOW_MINUTES" envDefault:"30"`
	TransactionLookbackDays  int           `env:"TRANSACTION_LOOKBACK_DAYS" envDefault:"7"`
	TransactionLookaheadDays int           `env:"TRANSACTION_LOOKAHEAD_DAYS" envDefault:"1"`
	FuzzyMatchThreshold      int           `env:"FUZZY_MATCH_THRESHOLD" envDefault:"80"`
	InteractionDaysBack      int           `env:"INTERACTION_DAYS_BACK" envDefault:"0"`
	FlagRulesPath            string        `env:"FLAG_RULES_PATH" envDefault:""`
	// VenueTimezone decides which calendar day a check-in falls on.
	VenueTimezone string `env:"VENUE_TIMEZONE" envDefault:"UTC"`
}

// Load reads an optional .env file then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.VenueLocation(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) VenueLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid VENUE_TIMEZONE %q: %w", c.VenueTimezone, err)
	}
	return loc, nil
}

// DatabaseDSN builds the lib/pq connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

// DatabaseURL builds the URL form used by golang-migrate.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DatabaseUserName, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName, c.DatabaseSSLMode)
}
