package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/slaphard/slaphard/service/internal/store"
)

// NewRootCommand builds the "slaphard serve" cobra command. Flags are
// bound into a viper instance so PORT, REDIS_URL, DATABASE_URL,
// ENABLE_DB_PERSISTENCE, ALLOW_IN_MEMORY_ROOM_STORE, ROOM_TTL,
// CORS_ORIGINS, LOG_LEVEL, LOG_FORMAT and JWT_SECRET can all come from the
// environment (or a loaded .env file) with an explicit flag always taking
// precedence. run is invoked only after cfg.Validate has passed.
func NewRootCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var corsOrigins string

	root := &cobra.Command{
		Use:           "slaphard",
		Short:         "SlapHard realtime reflex card game server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "run the websocket game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.CORSOrigins = splitOrigins(corsOrigins)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := serve.Flags()
	fs.StringVar(&cfg.Env, "env", "development", "deployment environment: development or production (env: ENV)")
	fs.IntVar(&cfg.Port, "port", 8080, "port to listen on (env: PORT)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection string (env: REDIS_URL)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection string (env: DATABASE_URL)")
	fs.BoolVar(&cfg.EnableDBPersistence, "enable-db-persistence", false, "journal room/match history to postgres (env: ENABLE_DB_PERSISTENCE)")
	fs.BoolVar(&cfg.AllowInMemoryRoomStore, "allow-in-memory-room-store", false, "fall back to a single-process in-memory room store instead of redis (env: ALLOW_IN_MEMORY_ROOM_STORE)")
	fs.DurationVar(&cfg.RoomTTL, "room-ttl", store.DefaultTTL, "room entry lifetime, refreshed on every save (env: ROOM_TTL)")
	fs.StringVar(&corsOrigins, "cors-origins", "*", `comma-separated list of allowed websocket origins, or "*" (env: CORS_ORIGINS)`)
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "logrus level (env: LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "log output format: text or json (env: LOG_FORMAT)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HMAC secret for join tokens (env: JWT_SECRET)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	root.AddCommand(serve)
	return root
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
