package config

import (
	"time"

	pkgconfig "github.com/StormyOasis/linsta-sub001/pkg/config"
	"github.com/StormyOasis/linsta-sub001/pkg/database"
	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
	"github.com/StormyOasis/linsta-sub001/pkg/storage"
)

type Config struct {
	Server        ServerConfig
	Log           log.Config
	JWT           jwt.Config
	Neo4j         Neo4jConfig
	Elasticsearch ElasticsearchConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Storage       storage.Config
	Database      database.Config
	PubSub        pubsub.Config `mapstructure:"pubsub"`
	Email         EmailConfig
	SMS           SMSConfig `mapstructure:"sms"`
	Geocode       GeocodeConfig
	Outbox        OutboxConfig
	Media         MediaConfig
	Account       AccountConfig
	Metrics       MetricsConfig
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	PublicPaths     []string      `mapstructure:"public_paths"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	APIKey        string   `mapstructure:"api_key"`
	IndexPosts    string   `mapstructure:"index_posts"`
	IndexProfiles string   `mapstructure:"index_profiles"`
	PageSize      int      `mapstructure:"page_size"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	// TTL of entity cache entries; zero keeps entries until invalidated.
	TTL time.Duration `mapstructure:"ttl"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type GeocodeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Limit     int           `mapstructure:"limit"`
}

type OutboxConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type MediaConfig struct {
	MaxPostImages int `mapstructure:"max_post_images"`
	PostMaxWidth  int `mapstructure:"post_max_width"`
	PhotoSize     int `mapstructure:"photo_size"`
	JPEGQuality   int `mapstructure:"jpeg_quality"`
	// Largest decoded image accepted, in pixels.
	MaxPixels int64 `mapstructure:"max_pixels"`
}

type AccountConfig struct {
	// Base URL of the frontend page that accepts reset tokens.
	ResetURL       string        `mapstructure:"reset_url"`
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"`
	ReservedNames  []string      `mapstructure:"reserved_names"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	RequireConfirm bool          `mapstructure:"require_confirm"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultPublicPaths are reachable without a bearer token.
var DefaultPublicPaths = []string{
	"/healthz",
	"/metrics",
	"/media/*",
	"/api/v1/accounts/signup",
	"/api/v1/accounts/login",
	"/api/v1/accounts/refresh",
	"/api/v1/accounts/check-username/:userName",
	"/api/v1/accounts/confirm",
	"/api/v1/accounts/confirm/resend",
	"/api/v1/accounts/forgot-password",
	"/api/v1/accounts/reset-password",
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_bytes", 50<<20)
	v.SetDefault("server.public_paths", DefaultPublicPaths)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "linsta-api")
	v.SetDefault("jwt.issuer", "linsta")
	v.SetDefault("jwt.access_duration", "1h")
	v.SetDefault("jwt.refresh_duration", "168h")
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index_posts", "posts")
	v.SetDefault("elasticsearch.index_profiles", "profiles")
	v.SetDefault("elasticsearch.page_size", 12)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.s3.region", "us-west-2")
	v.SetDefault("storage.s3.bucket", "linsta-media")
	v.SetDefault("storage.local.base_path", "./data/media")
	v.SetDefault("storage.local.base_url", "http://localhost:3001/media")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "./data/outbox.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "linsta-worker")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "no-reply@linsta.local")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "linsta-api/1.0")
	v.SetDefault("geocode.timeout", "5s")
	v.SetDefault("geocode.cache_ttl", "24h")
	v.SetDefault("geocode.limit", 8)
	v.SetDefault("outbox.interval", "2s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 20)
	v.SetDefault("media.max_post_images", 10)
	v.SetDefault("media.post_max_width", 1080)
	v.SetDefault("media.photo_size", 320)
	v.SetDefault("media.jpeg_quality", 85)
	v.SetDefault("media.max_pixels", 40_000_000)
	v.SetDefault("account.reset_url", "http://localhost:3000/accounts/password/reset")
	v.SetDefault("account.code_ttl", "24h")
	v.SetDefault("account.reset_token_ttl", "1h")
	v.SetDefault("account.bcrypt_cost", 10)
	v.SetDefault("account.require_confirm", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("jwt.private_key_path", "JWT_PRIVATE_KEY_PATH")
	v.BindEnv("neo4j.uri", "NEO4J_URI")
	v.BindEnv("neo4j.username", "NEO4J_USERNAME")
	v.BindEnv("neo4j.password", "NEO4J_PASSWORD")
	v.BindEnv("elasticsearch.addresses", "ES_ADDRESSES")
	v.BindEnv("elasticsearch.api_key", "ES_API_KEY")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("email.password", "SMTP_PASSWORD")
	v.BindEnv("sms.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("sms.auth_token", "TWILIO_AUTH_TOKEN")
	pkgconfig.BindEnvs(v, "log.level", "storage.driver", "pubsub.driver", "database.driver", "cache.ttl")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
