package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

const envPrefix = "NEWSLETTER_"

// loadEnvFile reads .env.local from the working directory or its parent.
// Variables already set in the environment win.
func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// parseEnv overlays NEWSLETTER_* variables. Unset or empty variables keep
// the current value; malformed numbers, booleans and durations are errors.
func parseEnv(c *Config) error {
	e := &envReader{}

	e.str("HTTP_ADDR", &c.HTTPAddr)
	e.str("GRPC_ADDR", &c.GRPCAddr)
	e.str("BASE_URL", &c.BaseURL)

	e.str("DATABASE_DSN", &c.DatabaseDSN)
	e.integer("DB_MAX_OPEN_CONNS", &c.DBMaxOpenConns)
	e.integer("DB_MAX_IDLE_CONNS", &c.DBMaxIdleConns)
	e.duration("DB_ACQUIRE_TIMEOUT", &c.DBAcquireTimeout)

	e.secret("HMAC_SECRET", &c.HMACSecret)
	e.secret("SESSION_SECRET", &c.SessionSecret)
	e.str("SESSION_MODE", &c.SessionMode)
	e.duration("SESSION_TTL", &c.SessionTTL)

	e.str("EMAIL_BASE_URL", &c.EmailBaseURL)
	e.str("EMAIL_SENDER", &c.EmailSender)
	e.secret("EMAIL_AUTH_TOKEN", &c.EmailAuthToken)
	e.duration("EMAIL_TIMEOUT", &c.EmailTimeout)

	e.integer("HASH_WORKERS", &c.HashWorkers)
	e.integer("DELIVERY_WORKERS", &c.DeliveryWorkers)

	e.str("REDIS_URL", &c.RedisURL)
	e.str("DELIVERY_MODE", &c.DeliveryMode)
	e.integer("LOGIN_MAX_ATTEMPTS", &c.LoginMaxAttempts)
	e.duration("LOGIN_WINDOW", &c.LoginWindow)

	e.str("S3_BUCKET", &c.S3Bucket)
	e.str("S3_REGION", &c.S3Region)
	e.str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	e.str("S3_ACCESS_KEY", &c.S3AccessKey)
	e.secret("S3_SECRET_KEY", &c.S3SecretKey)

	e.str("LOG_LEVEL", &c.LogLevel)
	e.boolean("RELEASE_MODE", &c.ReleaseMode)

	return e.err
}

// envReader remembers the first parse error.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := os.Getenv(envPrefix + key)
	return v, v != ""
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("env %s%s: %w", envPrefix, key, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) secret(key string, dst *passwords.Secret) {
	if v, ok := e.lookup(key); ok {
		*dst = passwords.NewSecret(v)
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}
