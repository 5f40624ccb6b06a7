package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	RabbitMQ          RabbitMQConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Subscriptions     SubscriptionConfig
	Settlement        SettlementConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Addr disables the distributed job lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig is optional; an empty URL keeps notifications in MySQL only.
type RabbitMQConfig struct {
	URL                   string
	NotificationsExchange string
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type SubscriptionConfig struct {
	Location *time.Location
}

type SettlementConfig struct {
	Schedule string
	Location *time.Location
	FeeRate  decimal.Decimal
	LockTTL  time.Duration
}

type JobsConfig struct {
	ExpirationCheckInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	subscriptionLoc, err := getLocationEnv("SUBSCRIPTION_TIMEZONE", "UTC")
	if err != nil {
		return nil, err
	}
	settlementLoc, err := getLocationEnv("SETTLEMENT_TIMEZONE", "Asia/Kolkata")
	if err != nil {
		return nil, err
	}
	feeRate, err := getDecimalEnv("PLATFORM_FEE_RATE", decimal.RequireFromString("0.10"))
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "hotel-billing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                   getEnv("RABBITMQ_URL", ""),
			NotificationsExchange: getEnv("NOTIFICATIONS_EXCHANGE", "hotel.notifications"),
		},
		Log: LogConfig{Level: getEnv("LOG_LEVEL", "info")},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Subscriptions: SubscriptionConfig{
			Location: subscriptionLoc,
		},
		Settlement: SettlementConfig{
			Schedule: getEnv("SETTLEMENT_SCHEDULE", "0 0 * * *"),
			Location: settlementLoc,
			FeeRate:  feeRate,
			LockTTL:  getDurationEnv("SETTLEMENT_LOCK_TTL_MINUTES", 30*time.Minute),
		},
		Jobs: JobsConfig{
			ExpirationCheckInterval: getDurationEnv("EXPIRATION_CHECK_INTERVAL_MINUTES", time.Hour),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getLocationEnv(key, defaultValue string) (*time.Location, error) {
	name := getEnv(key, defaultValue)
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, name, err)
	}
	return loc, nil
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if !d.IsPositive() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must be between 0 and 1", key, value)
	}
	return d, nil
}
