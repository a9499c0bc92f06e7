// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures every environment-driven setting of the API server.
type Config struct {
	Env  string
	Port string

	DatabaseURL      string // empty means in-memory store
	DatabaseMaxConns int32

	JWTSecret          string
	JWTTTL             time.Duration
	CORSAllowedOrigins []string

	CropModelPath       string
	FertilizerModelPath string // empty means the crop model also serves fertilizer
	DiseaseModelURL     string
	DiseaseModelName    string
	DiseaseModelTimeout time.Duration
	MaxImageSize        int64

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	NATSURL string

	RedisURL         string
	LoginMaxAttempts int
	LoginLockout     time.Duration

	TracingEnabled bool
}

const (
	defaultEnv              = "dev"
	defaultPort             = "8000"
	defaultCropModelPath    = "models/xgboost.json"
	defaultDiseaseModelName = "plant_disease"
	defaultMinIOBucket      = "agridoctor-leaves"
	defaultMaxImageSize     = 10 * 1024 * 1024
	devJWTSecret            = "dev-secret-change-me"
)

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

// LoadDotEnv loads .env and then .env.local when present. Variables already set in
// the process environment win over both files.
func LoadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("failed to load env file", "file", name, "error", err)
		}
	}
}

// Load reads the environment and returns a validated Config.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", defaultEnv),
		Port:                getEnv("PORT", defaultPort),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DatabaseMaxConns:    int32(getInt("DATABASE_MAX_CONNS", 10)),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTL:              getDuration("JWT_TTL", 24*time.Hour),
		CORSAllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		CropModelPath:       getEnv("CROP_MODEL_PATH", defaultCropModelPath),
		FertilizerModelPath: os.Getenv("FERTILIZER_MODEL_PATH"),
		DiseaseModelURL:     strings.TrimRight(os.Getenv("DISEASE_MODEL_URL"), "/"),
		DiseaseModelName:    getEnv("DISEASE_MODEL_NAME", defaultDiseaseModelName),
		DiseaseModelTimeout: getDuration("DISEASE_MODEL_TIMEOUT", 30*time.Second),
		MaxImageSize:        int64(getInt("MAX_IMAGE_SIZE", defaultMaxImageSize)),
		MinIOEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:         getEnv("MINIO_BUCKET", defaultMinIOBucket),
		MinIOUseSSL:         parseBool(os.Getenv("MINIO_USE_SSL")),
		NATSURL:             os.Getenv("NATS_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		LoginMaxAttempts:    getInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockout:        getDuration("LOGIN_LOCKOUT", 15*time.Minute),
		TracingEnabled:      parseBool(os.Getenv("TRACING_ENABLED")),
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != defaultEnv {
			return cfg, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.Env)
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.MaxImageSize <= 0 {
		return cfg, fmt.Errorf("MAX_IMAGE_SIZE must be positive, got %d", cfg.MaxImageSize)
	}
	if cfg.JWTTTL <= 0 {
		return cfg, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
