package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Env:                    "development",
		Port:                   8080,
		AllowInMemoryRoomStore: true,
		CORSOrigins:            []string{"*"},
		LogLevel:               "info",
		LogFormat:              "text",
		JWTSecret:              "secret",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsWildcardOriginsInProduction(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	assert.Error(t, c.Validate())
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	c := validConfig()
	c.JWTSecret = ""
	assert.Error(t, c.Validate())
}

func TestValidateRequiresDatabaseURLWhenPersistenceEnabled(t *testing.T) {
	c := validConfig()
	c.EnableDBPersistence = true
	assert.Error(t, c.Validate())
}

func TestValidateRequiresRedisURLWithoutInMemoryFallback(t *testing.T) {
	c := validConfig()
	c.AllowInMemoryRoomStore = false
	assert.Error(t, c.Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	c := validConfig()
	c.Port = 70000
	assert.Error(t, c.Validate())
}

func TestBuildLoggerRejectsBadLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "not-a-level"
	_, err := c.BuildLogger()
	assert.Error(t, err)
}

func TestBuildLoggerAcceptsJSONFormat(t *testing.T) {
	c := validConfig()
	c.LogFormat = "json"
	log, err := c.BuildLogger()
	assert.NoError(t, err)
	assert.NotNil(t, log)
}
