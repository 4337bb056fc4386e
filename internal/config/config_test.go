package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "shopguard", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "", cfg.CV.APIKey)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", cfg.CV.FallbackLocationID)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "shopguard/cv/#", cfg.MQTT.Topic)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("HTTP_ADDR", ":9000")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("CV_API_KEY", "test-secret")
	os.Setenv("CV_FALLBACK_LOCATION_ID", "loc-fallback")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "test-secret", cfg.CV.APIKey)
	assert.Equal(t, "loc-fallback", cfg.CV.FallbackLocationID)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p",
		Database: "shopguard", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=shopguard sslmode=disable", cfg.GetDSN())
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, parseInt("42", 0))
	assert.Equal(t, 7, parseInt("not-a-number", 7))
	assert.Equal(t, 7, parseInt("", 7))
}
