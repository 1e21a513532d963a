// Package config loads server configuration from flags, environment
// variables, and an optional .env file, and builds the process-wide
// logger from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the fully resolved configuration surface for `slaphard serve`.
type Config struct {
	Env  string
	Port int

	RedisURL               string
	DatabaseURL            string
	EnableDBPersistence    bool
	AllowInMemoryRoomStore bool
	RoomTTL                time.Duration

	CORSOrigins []string

	LogLevel  string
	LogFormat string

	JWTSecret string
}

// Validate checks cross-field constraints that no single flag default can
// enforce on its own.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Env == "production" && len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == "*" {
		return errors.New(`config: CORS_ORIGINS must not be "*" when ENV=production`)
	}
	if c.EnableDBPersistence && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required when ENABLE_DB_PERSISTENCE is set")
	}
	if !c.AllowInMemoryRoomStore && c.RedisURL == "" {
		return errors.New("config: REDIS_URL is required unless ALLOW_IN_MEMORY_ROOM_STORE is set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	return nil
}

// BuildLogger constructs the process-wide *logrus.Logger from LogLevel and
// LogFormat. This is the only logger the process ever constructs — it is
// threaded down as a field on every package that logs, never a global.
func (c *Config) BuildLogger() (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// LoadDotenv loads a .env file into the process environment if one exists
// at path. A missing file is not an error; a malformed one is.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
