package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// InsecureDefaultJWTSecret is used when JWT_SECRET is not set. It exists so
// local development works out of the box; running production with it is a
// known security gap and is logged loudly at startup.
const InsecureDefaultJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Payment  PaymentConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    string
	ExpiryHrs int
	Insecure  bool // true when running on the development default secret
}

type CORSConfig struct {
	AllowedOrigins []string
}

// PaymentConfig holds the payment-gateway credentials. With an empty APIKey
// the gateway adapter runs in development mode and only checks transaction
// ID format.
type PaymentConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// EventsConfig points at the message broker for order events. Empty URL
// disables publishing.
type EventsConfig struct {
	AMQPURL string
}

// Load reads configuration from .env and the process environment. It is
// called once at startup; the resulting struct is passed by injection to
// every component that needs it.
func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRY_HOURS", 168) // 7 days
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.iamport.kr")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	secret := viper.GetString("JWT_SECRET")
	insecure := secret == ""
	if insecure {
		secret = InsecureDefaultJWTSecret
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:    secret,
			ExpiryHrs: viper.GetInt("JWT_EXPIRY_HOURS"),
			Insecure:  insecure,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Payment: PaymentConfig{
			BaseURL:   viper.GetString("PAYMENT_BASE_URL"),
			APIKey:    viper.GetString("PAYMENT_API_KEY"),
			APISecret: viper.GetString("PAYMENT_API_SECRET"),
		},
		Events: EventsConfig{
			AMQPURL: viper.GetString("AMQP_URL"),
		},
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
