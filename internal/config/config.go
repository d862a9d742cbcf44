package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Matching MatchingConfig `mapstructure:"matching"`
	Resume   ResumeConfig   `mapstructure:"resume"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// LoginRateLimitPerHour 限制单 IP+用户名的每小时登录尝试次数。
	LoginRateLimitPerHour int `mapstructure:"login_rate_limit_per_hour"`
}

// AuthConfig contains JWT signing key locations and token lifetimes.
type AuthConfig struct {
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
}

// ClamdConfig 包含病毒扫描服务地址。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// ResumeConfig 包含简历上传相关限制。
type ResumeConfig struct {
	MaxPerUser int `mapstructure:"max_per_user"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// GeminiConfig 包含生成式 AI 后端的调用配置。
// Timeout 为单次调用的硬超时，匹配管线绝不无限等待该依赖。
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MatchingConfig 包含匹配管线的运行参数。
type MatchingConfig struct {
	// MaxJobs 限制单次请求送入匹配的职位数量（成本安全阀）。
	MaxJobs int `mapstructure:"max_jobs"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr 返回 host:port 形式的 Redis 地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("clamd.addr", "tcp://localhost:3310")
	v.SetDefault("resume.max_per_user", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "talenthub")
	v.SetDefault("database.user", "talenthub")
	v.SetDefault("database.password", "talenthub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 12*time.Second)
	v.SetDefault("matching.max_jobs", 50)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                      "API_PORT",
		"api.login_rate_limit_per_hour": "API_LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.private_key_path":         "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":          "JWT_PUBLIC_KEY_PATH",
		"auth.access_ttl":               "JWT_ACCESS_TTL",
		"auth.refresh_ttl":              "JWT_REFRESH_TTL",
		"clamd.addr":                    "CLAMD_ADDR",
		"resume.max_per_user":           "RESUME_MAX_PER_USER",
		"database.host":                 "DATABASE_HOST",
		"database.port":                 "DATABASE_PORT",
		"database.name":                 "POSTGRES_DB",
		"database.user":                 "POSTGRES_USER",
		"database.password":             "POSTGRES_PASSWORD",
		"database.sslmode":              "DATABASE_SSLMODE",
		"redis.host":                    "REDIS_HOST",
		"redis.port":                    "REDIS_PORT",
		"minio.endpoint":                "MINIO_ENDPOINT",
		"minio.public_endpoint":         "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":           "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":       "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                 "MINIO_USE_SSL",
		"minio.bucket":                  "MINIO_BUCKET",
		"minio.region":                  "MINIO_REGION",
		"minio.bucket_lookup":           "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":      "MINIO_AUTO_CREATE_BUCKET",
		"gemini.api_key":                "GEMINI_API_KEY",
		"gemini.model":                  "GEMINI_MODEL",
		"gemini.timeout":                "GEMINI_TIMEOUT",
		"matching.max_jobs":             "MATCHING_MAX_JOBS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Gemini.Timeout <= 0 {
		return errors.New("gemini timeout must be positive")
	}
	if cfg.Matching.MaxJobs <= 0 {
		return errors.New("matching max jobs must be positive")
	}
	if cfg.Auth.AccessTTL <= 0 || cfg.Auth.RefreshTTL <= 0 {
		return errors.New("jwt token lifetimes must be positive")
	}
	if cfg.Clamd.Addr == "" {
		return errors.New("clamd addr is required")
	}
	return nil
}
