package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr string

	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	JWTSecret  string
	AdminGuard bool

	UploadDir      string
	MaxUploadBytes int
	PriceListPath  string
	PublicBaseURL  string

	Mail  MailConfig
	Redis RedisConfig
	Minio MinioConfig

	LogLevel  string
	LogFormat string
}

// MailConfig carries the SMTP accounts used per recipient domain.
type MailConfig struct {
	GmailUser  string
	GmailPass  string
	MailRuUser string
	MailRuPass string
	YandexUser string
	YandexPass string
}

type RedisConfig struct {
	Addr     string
	Password string
}

// MinioConfig is optional; uploads go to UploadDir when Endpoint is empty.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr: getEnv("APP_ADDR", ":3000"),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		AdminGuard: getBool("ADMIN_GUARD", false),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: getInt("MAX_UPLOAD_BYTES", 5*1024*1024),
		PriceListPath:  getEnv("PRICE_LIST_PATH", "./data/Price.json"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		Mail: MailConfig{
			GmailUser:  os.Getenv("GMAIL_USER"),
			GmailPass:  os.Getenv("GMAIL_PASS"),
			MailRuUser: os.Getenv("EMAIL_USER"),
			MailRuPass: os.Getenv("EMAIL_PASS"),
			YandexUser: os.Getenv("YANDEX_EMAIL_USER"),
			YandexPass: os.Getenv("YANDEX_EMAIL_PASS"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "uploads"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
			Region:    os.Getenv("MINIO_REGION"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
