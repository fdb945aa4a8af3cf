package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StorageFilesystem = "filesystem"
	StorageMinio      = "minio"
)

// Backend drivers shared by the document store and the change feed.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Storage      StorageConfig
	Minio        MinioConfig
	DocStore     DocStoreConfig
	ChangeFeed   ChangeFeedConfig
	Kafka        KafkaConfig
	Cache        CacheConfig
	Verification VerificationConfig
	WebSocket    WebSocketConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig describes how tokens issued by the identity provider are validated.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the blob backend and upload limits.
type StorageConfig struct {
	Driver           string
	Dir              string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	MaxPhotoBytes    int64
	AllowedMIMEs     []string
}

type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PresignTTL time.Duration
}

// DocStoreConfig selects the remote document store backend.
type DocStoreConfig struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	Timeout       time.Duration
}

// ChangeFeedConfig selects how entity store invalidations are fanned out.
type ChangeFeedConfig struct {
	Driver string
	Prefix string
	Buffer int
}

// KafkaConfig configures the activity event publisher.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	ActivityTopic string
	Workers       int
	Retries       int
}

// CacheConfig tunes the unit catalog cache.
type CacheConfig struct {
	Enabled bool
	UnitTTL time.Duration
}

// VerificationConfig tunes one-time verification codes.
type VerificationConfig struct {
	CodeTTL     time.Duration
	ExposeCode  bool
	MaxAttempts int
}

// WebSocketConfig tunes screen sessions.
type WebSocketConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	MaxFrameSize int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	maxPhotoSize := v.GetInt64("UPLOAD_MAX_PHOTO_SIZE")
	if maxPhotoSize <= 0 {
		maxPhotoSize = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Dir:              v.GetString("STORAGE_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes: maxFileSize,
		MaxPhotoBytes:    maxPhotoSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
	}

	cfg.Minio = MinioConfig{
		Endpoint:   v.GetString("MINIO_ENDPOINT"),
		AccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		SecretKey:  v.GetString("MINIO_SECRET_KEY"),
		Bucket:     v.GetString("MINIO_BUCKET"),
		UseSSL:     v.GetBool("MINIO_USE_SSL"),
		PresignTTL: parseDuration(v.GetString("MINIO_PRESIGN_TTL"), time.Hour),
	}

	cfg.DocStore = DocStoreConfig{
		Driver:        strings.ToLower(v.GetString("DOCSTORE_DRIVER")),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		Timeout:       parseDuration(v.GetString("MONGO_TIMEOUT"), 10*time.Second),
	}

	cfg.ChangeFeed = ChangeFeedConfig{
		Driver: strings.ToLower(v.GetString("CHANGEFEED_DRIVER")),
		Prefix: v.GetString("CHANGEFEED_PREFIX"),
		Buffer: v.GetInt("CHANGEFEED_BUFFER"),
	}

	cfg.Kafka = KafkaConfig{
		Enabled:       v.GetBool("ENABLE_ACTIVITY_EVENTS"),
		Brokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		ActivityTopic: v.GetString("KAFKA_ACTIVITY_TOPIC"),
		Workers:       v.GetInt("ACTIVITY_EVENT_WORKERS"),
		Retries:       v.GetInt("ACTIVITY_EVENT_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_UNIT_CACHE"),
		UnitTTL: parseDuration(v.GetString("UNIT_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Verification = VerificationConfig{
		CodeTTL:     parseDuration(v.GetString("VERIFICATION_CODE_TTL"), 5*time.Minute),
		ExposeCode:  cfg.Env != EnvProduction,
		MaxAttempts: v.GetInt("VERIFICATION_MAX_ATTEMPTS"),
	}

	cfg.WebSocket = WebSocketConfig{
		WriteTimeout: parseDuration(v.GetString("WS_WRITE_TIMEOUT"), 10*time.Second),
		PingInterval: parseDuration(v.GetString("WS_PING_INTERVAL"), 30*time.Second),
		MaxFrameSize: v.GetInt64("WS_MAX_FRAME_SIZE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "somashare")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageFilesystem)
	v.SetDefault("STORAGE_DIR", "./blobs")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "1h")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("UPLOAD_MAX_PHOTO_SIZE", 5*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf")

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "somashare")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_PRESIGN_TTL", "1h")

	v.SetDefault("DOCSTORE_DRIVER", DriverMemory)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "somashare")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("CHANGEFEED_DRIVER", DriverMemory)
	v.SetDefault("CHANGEFEED_PREFIX", "somashare")
	v.SetDefault("CHANGEFEED_BUFFER", 16)

	v.SetDefault("ENABLE_ACTIVITY_EVENTS", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_ACTIVITY_TOPIC", "paper-activity")
	v.SetDefault("ACTIVITY_EVENT_WORKERS", 2)
	v.SetDefault("ACTIVITY_EVENT_RETRIES", 3)

	v.SetDefault("ENABLE_UNIT_CACHE", false)
	v.SetDefault("UNIT_CACHE_TTL", "10m")

	v.SetDefault("VERIFICATION_CODE_TTL", "5m")
	v.SetDefault("VERIFICATION_MAX_ATTEMPTS", 5)

	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
	v.SetDefault("WS_PING_INTERVAL", "30s")
	v.SetDefault("WS_MAX_FRAME_SIZE", 25*1024*1024)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
