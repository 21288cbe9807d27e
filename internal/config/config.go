package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                         string   `yaml:"port"`
	LogLevel                     string   `yaml:"logLevel"`
	DatabaseURL                  string   `yaml:"databaseURL"`
	JWTSecret                    string   `yaml:"jwtSecret"`
	JWTIssuer                    string   `yaml:"jwtIssuer"`
	JWTAudience                  string   `yaml:"jwtAudience"`
	JWTLeeway                    string   `yaml:"jwtLeeway"`
	MinioEndpoint                string   `yaml:"minioEndpoint"`
	MinioAccessKey               string   `yaml:"minioAccessKey"`
	MinioSecretKey               string   `yaml:"minioSecretKey"`
	MinioBucket                  string   `yaml:"minioBucket"`
	MinioUseSSL                  bool     `yaml:"minioUseSSL"`
	RedisAddr                    string   `yaml:"redisAddr"`
	RedisPassword                string   `yaml:"redisPassword"`
	CsvUploadRateLimitPerMinute  int      `yaml:"csvUploadRateLimitPerMinute"`
	BulkUpdateRateLimitPerMinute int      `yaml:"bulkUpdateRateLimitPerMinute"`
	PresignTTLSeconds            int      `yaml:"presignTtlSeconds"`
	MaxUploadBytes               int64    `yaml:"maxUploadBytes"`
	AllowedExtensions            []string `yaml:"allowedExtensions"`
	AdminUsername                string   `yaml:"adminUsername"`
	AdminPassword                string   `yaml:"adminPassword"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("PLATFORM_CSV_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CsvUploadRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("PLATFORM_BULK_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BulkUpdateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("PLATFORM_PRESIGN_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PresignTTLSeconds = n
		}
	}
	if v := os.Getenv("PLATFORM_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("PLATFORM_ALLOWED_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}
	if v := os.Getenv("PLATFORM_ADMIN_USERNAME"); v != "" {
		cfg.AdminUsername = v
	}
	if v := os.Getenv("PLATFORM_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		return errors.New("config: minioEndpoint is required for file attachments")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.CsvUploadRateLimitPerMinute < 0 || cfg.BulkUpdateRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.PresignTTLSeconds < 0 {
		return errors.New("config: presignTtlSeconds must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseJWTLeeway parses the optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
