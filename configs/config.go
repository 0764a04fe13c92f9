package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Addr          string
	SessionSecret string
	UploadDir     string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	ManagerUsernames []string
	WhatsAppNumber   string
	CORSOrigins      []string

	RateLimitRPS   float64
	RateLimitBurst int
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
}

type ExchangeConfig struct {
	URL   string
	Field string
	TTL   time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type AfricaTalkingConfig struct {
	Username     string
	APIKey       string
	SMSURL       string
	SenderID     string
	ManagerPhone string
}

type EmailConfig struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	SenderEmail        string
}

// LoadEnv reads a .env file when one is present. A missing file is fine,
// the process environment is used as is.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", slog.String("error", err.Error()))
	}
}

func LoadAppConfig() AppConfig {
	return AppConfig{
		Addr:             getEnvOrDefault("HTTP_ADDR", ":8080"),
		SessionSecret:    getEnvOrDefault("SESSION_SECRET", "change-me"),
		UploadDir:        getEnvOrDefault("UPLOAD_DIR", "media"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		SessionTTL:       getDurationOrDefault("SESSION_TTL", 14*24*time.Hour),
		ManagerUsernames: splitList(os.Getenv("MANAGER_USERNAMES")),
		WhatsAppNumber:   getEnvOrDefault("WHATSAPP_NUMBER", "584121834638"),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitRPS:     getFloatOrDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getIntOrDefault("RATE_LIMIT_BURST", 10),
	}
}

func LoadDBConfig() DBConfig {
	return DBConfig{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		User:     getEnvOrDefault("POSTGRES_USER", "test"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "test"),
		Name:     getEnvOrDefault("POSTGRES_DB", "test"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		TimeZone: getEnvOrDefault("DB_TIMEZONE", "America/Caracas"),
	}
}

func LoadExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		URL:   os.Getenv("EXCHANGE_RATE_URL"),
		Field: getEnvOrDefault("EXCHANGE_RATE_FIELD", "rate"),
		TTL:   getDurationOrDefault("EXCHANGE_RATE_TTL", 30*time.Minute),
	}
}

func LoadKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		Topic:   getEnvOrDefault("KAFKA_TOPIC", "storefront.orders"),
	}
}

func LoadOIDCConfig() OIDCConfig {
	return OIDCConfig{
		Issuer:       os.Getenv("OIDC_ISSUER"),
		ClientID:     os.Getenv("OIDC_CLIENT_ID"),
		ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
	}
}

func LoadAfricaTalkingConfig() AfricaTalkingConfig {
	return AfricaTalkingConfig{
		Username:     os.Getenv("AT_USERNAME"),
		APIKey:       os.Getenv("AT_API_KEY"),
		SMSURL:       getEnvOrDefault("AT_SMS_URL", "https://api.sandbox.africastalking.com/version1/messaging"), // Sandbox URL
		SenderID:     getEnvOrDefault("AT_SENDER_ID", "AFRICASTKNG"),
		ManagerPhone: os.Getenv("AT_MANAGER_PHONE"),
	}
}

func LoadEmailConfig() EmailConfig {
	return EmailConfig{
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		SenderEmail:        os.Getenv("AWS_SENDER_ADDRESS"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
