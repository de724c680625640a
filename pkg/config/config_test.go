package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-demo/pkg/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "trades", cfg.Kafka.Topic)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Addr())
	assert.Equal(t, "localhost:5701", cfg.Hazelcast.Addr())
	assert.Equal(t, "dotnet-stock-demo", cfg.Hazelcast.ClusterName)
	assert.Equal(t, 4*time.Minute, cfg.Demo.SetupTimeout)
	assert.Equal(t, 4*time.Second, cfg.Kafka.PurgeWait)
	assert.True(t, cfg.Demo.RawStream)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_HOST", "broker")
	t.Setenv("KAFKA_PORT", "19092")
	t.Setenv("KAFKA_TOPIC", "demo-trades")
	t.Setenv("HAZELCAST_CLUSTER_NAME", "grid")
	t.Setenv("DEMO_SETUP_TIMEOUT", "30s")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "broker:19092", cfg.Kafka.Addr())
	assert.Equal(t, "demo-trades", cfg.Kafka.Topic)
	assert.Equal(t, "grid", cfg.Hazelcast.ClusterName)
	assert.Equal(t, 30*time.Second, cfg.Demo.SetupTimeout)
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			Kafka:     config.KafkaConfig{Host: "k", Port: 9092, Topic: "trades"},
			Hazelcast: config.HazelcastConfig{Host: "h", Port: 5701, ClusterName: "c"},
			Demo:      config.DemoConfig{SetupTimeout: time.Minute},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Kafka.Topic = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Hazelcast.ClusterName = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Demo.SetupTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	_, err := config.NewLogger(config.LoggerConfig{Level: "debug", Encoding: "console"})
	assert.NoError(t, err)

	_, err = config.NewLogger(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = config.NewLogger(config.LoggerConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
