package config

import "os"

// Server captures process level configuration.
type Server struct {
	Addr          string
	RedisURL      string
	PostgresDSN   string
	JWTSigningKey string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// RedisURL and PostgresDSN are optional: when empty the process runs on
// in-memory stores.
func FromEnv() Server {
	addr := os.Getenv("TRUSTFORGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("TRUSTFORGE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		RedisURL:      os.Getenv("TRUSTFORGE_REDIS_URL"),
		PostgresDSN:   os.Getenv("TRUSTFORGE_POSTGRES_DSN"),
		JWTSigningKey: jwtSigningKey,
	}
}
