package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort string

	MarketplaceURL string
	TokenPath      string

	PollInterval time.Duration
	SmsTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CatalogTTL    time.Duration

	RabbitURI string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from config.yaml with environment overrides.
// Every key has a default, so the agent starts with no config file at all.
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/app/configs")
	viper.AddConfigPath("./configs")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("marketplace.url", "MARKETPLACE_URL")
	_ = viper.BindEnv("rabbitmq.uri", "RABBITMQ_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR", "REDIS_ADDRESS")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("log.level", "LOG_LEVEL")

	_ = viper.ReadInConfig()

	viper.SetDefault("http.port", "8080")
	viper.SetDefault("marketplace.url", "https://openumber.shop")
	viper.SetDefault("marketplace.token_path", "")
	viper.SetDefault("session.poll_interval", "5s")
	viper.SetDefault("session.sms_timeout", "5m")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("catalog.ttl", "10m")
	viper.SetDefault("rabbitmq.uri", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	return &Config{
		HTTPPort:       viper.GetString("http.port"),
		MarketplaceURL: viper.GetString("marketplace.url"),
		TokenPath:      viper.GetString("marketplace.token_path"),
		PollInterval:   viper.GetDuration("session.poll_interval"),
		SmsTimeout:     viper.GetDuration("session.sms_timeout"),
		RedisAddr:      viper.GetString("redis.addr"),
		RedisPassword:  viper.GetString("redis.password"),
		RedisDB:        viper.GetInt("redis.db"),
		CatalogTTL:     viper.GetDuration("catalog.ttl"),
		RabbitURI:      viper.GetString("rabbitmq.uri"),
		LogLevel:       viper.GetString("log.level"),
		LogFormat:      viper.GetString("log.format"),
	}
}
