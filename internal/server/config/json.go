package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/newsletter/internal/flagx"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
	"github.com/dmitrijs2005/newsletter/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration, so both "15m" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	HTTPAddr string `json:"http_addr"`
	GRPCAddr string `json:"grpc_addr"`
	BaseURL  string `json:"base_url"`

	DatabaseDSN      string         `json:"database_dsn"`
	DBMaxOpenConns   int            `json:"db_max_open_conns"`
	DBMaxIdleConns   int            `json:"db_max_idle_conns"`
	DBAcquireTimeout timex.Duration `json:"db_acquire_timeout"`

	HMACSecret    string         `json:"hmac_secret"`
	SessionSecret string         `json:"session_secret"`
	SessionMode   string         `json:"session_mode"`
	SessionTTL    timex.Duration `json:"session_ttl"`

	EmailBaseURL   string         `json:"email_base_url"`
	EmailSender    string         `json:"email_sender"`
	EmailAuthToken string         `json:"email_auth_token"`
	EmailTimeout   timex.Duration `json:"email_timeout"`

	HashWorkers     int `json:"hash_workers"`
	DeliveryWorkers int `json:"delivery_workers"`

	RedisURL         string         `json:"redis_url"`
	DeliveryMode     string         `json:"delivery_mode"`
	LoginMaxAttempts int            `json:"login_max_attempts"`
	LoginWindow      timex.Duration `json:"login_window"`

	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`

	LogLevel    string `json:"log_level"`
	ReleaseMode *bool  `json:"release_mode"`
}

// parseJson overlays the file named by -c/-config in args, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.BaseURL, c.BaseURL)

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setDuration(&config.DBAcquireTimeout, c.DBAcquireTimeout)

	setSecret(&config.HMACSecret, c.HMACSecret)
	setSecret(&config.SessionSecret, c.SessionSecret)
	setString(&config.SessionMode, c.SessionMode)
	setDuration(&config.SessionTTL, c.SessionTTL)

	setString(&config.EmailBaseURL, c.EmailBaseURL)
	setString(&config.EmailSender, c.EmailSender)
	setSecret(&config.EmailAuthToken, c.EmailAuthToken)
	setDuration(&config.EmailTimeout, c.EmailTimeout)

	setInt(&config.HashWorkers, c.HashWorkers)
	setInt(&config.DeliveryWorkers, c.DeliveryWorkers)

	setString(&config.RedisURL, c.RedisURL)
	setString(&config.DeliveryMode, c.DeliveryMode)
	setInt(&config.LoginMaxAttempts, c.LoginMaxAttempts)
	setDuration(&config.LoginWindow, c.LoginWindow)

	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setSecret(&config.S3SecretKey, c.S3SecretKey)

	setString(&config.LogLevel, c.LogLevel)
	if c.ReleaseMode != nil {
		config.ReleaseMode = *c.ReleaseMode
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSecret(dst *passwords.Secret, v string) {
	if v != "" {
		*dst = passwords.NewSecret(v)
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
