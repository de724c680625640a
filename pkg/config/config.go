package config

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Hazelcast HazelcastConfig `mapstructure:"hazelcast"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Demo      DemoConfig      `mapstructure:"demo"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // "json" or "console"
}

type KafkaConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Topic     string        `mapstructure:"topic"`
	PurgeWait time.Duration `mapstructure:"purge_wait"`
}

// Addr is the bootstrap address of the broker.
func (k KafkaConfig) Addr() string {
	return net.JoinHostPort(k.Host, strconv.Itoa(k.Port))
}

type HazelcastConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	ClusterName string `mapstructure:"cluster_name"`
}

func (h HazelcastConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Channel    string `mapstructure:"channel"`
	RecentKey  string `mapstructure:"recent_key"`
	RecentSize int    `mapstructure:"recent_size"`
}

type DemoConfig struct {
	SetupTimeout time.Duration `mapstructure:"setup_timeout"`
	FeedInterval time.Duration `mapstructure:"feed_interval"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RawStream    bool          `mapstructure:"raw_stream"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Load .env into the process environment so viper sees it as real env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "kafka.host" -> "KAFKA_HOST"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not populate nested structs on Unmarshal
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "kafka.host", "kafka.port", "kafka.topic", "kafka.purge_wait")
	bindEnv(v, "hazelcast.host", "hazelcast.port", "hazelcast.cluster_name")
	bindEnv(v, "redis.addr", "redis.password", "redis.db", "redis.channel", "redis.recent_key", "redis.recent_size")
	bindEnv(v, "demo.setup_timeout", "demo.feed_interval", "demo.poll_interval", "demo.raw_stream")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":7001")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("kafka.host", "localhost")
	v.SetDefault("kafka.port", 9092)
	v.SetDefault("kafka.topic", "trades")
	v.SetDefault("kafka.purge_wait", 4*time.Second)

	v.SetDefault("hazelcast.host", "localhost")
	v.SetDefault("hazelcast.port", 5701)
	v.SetDefault("hazelcast.cluster_name", "dotnet-stock-demo")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "trades")
	v.SetDefault("redis.recent_key", "trades:recent")
	v.SetDefault("redis.recent_size", 10)

	v.SetDefault("demo.setup_timeout", 4*time.Minute)
	v.SetDefault("demo.feed_interval", time.Second)
	v.SetDefault("demo.poll_interval", time.Second)
	v.SetDefault("demo.raw_stream", true)
}

// Validate rejects configurations the demo cannot start with.
func (c *Config) Validate() error {
	if c.Kafka.Host == "" || c.Kafka.Port <= 0 {
		return fmt.Errorf("kafka host and port are required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic cannot be empty")
	}
	if c.Hazelcast.Host == "" || c.Hazelcast.Port <= 0 {
		return fmt.Errorf("hazelcast host and port are required")
	}
	if c.Hazelcast.ClusterName == "" {
		return fmt.Errorf("hazelcast cluster name cannot be empty")
	}
	if c.Demo.SetupTimeout <= 0 {
		return fmt.Errorf("demo setup timeout must be positive")
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
