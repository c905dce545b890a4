package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the feed service
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Market   MarketConfig   `mapstructure:"market"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type MarketConfig struct {
	// Tickers is the instrument catalog in broadcast order; BasePrices maps
	// each ticker to its mean-reversion reference price.
	Tickers        []string           `mapstructure:"tickers"`
	BasePrices     map[string]float64 `mapstructure:"base_prices"`
	TickIntervalMs int                `mapstructure:"tick_interval_ms"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "redis" or "postgres"
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the Postgres connection string for gorm.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type KafkaConfig struct {
	// Empty broker list disables the tick export entirely.
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputFile string `mapstructure:"output_file"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("market.tickers", []string{"AAPL", "GOOG", "TSLA", "AMZN", "MSFT"})
	v.SetDefault("market.base_prices", map[string]float64{
		"AAPL": 150.00,
		"GOOG": 175.50,
		"TSLA": 700.00,
		"AMZN": 3400.00,
		"MSFT": 310.00,
	})
	v.SetDefault("market.tick_interval_ms", 3000)

	v.SetDefault("store.driver", "redis")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "stockticker")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "market_ticks")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")

	// 3. Configure Viper to read Environment Variables
	// Maps dot-notation to underscores (e.g., "app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "market.tickers", "market.tick_interval_ms")
	bindEnv(v, "store.driver")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.dbname", "postgres.sslmode")
	bindEnv(v, "kafka.brokers", "kafka.topic")
	bindEnv(v, "log.level", "log.format", "log.output_file")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	if len(cfg.Market.Tickers) == 0 {
		return nil, fmt.Errorf("market tickers cannot be empty")
	}
	if cfg.Market.TickIntervalMs <= 0 {
		return nil, fmt.Errorf("tick interval must be positive")
	}
	switch cfg.Store.Driver {
	case "redis", "postgres":
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
