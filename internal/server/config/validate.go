package config

import (
	"errors"
	"fmt"
	"net/url"
)

// minSecretLength applies to HMACSecret and SessionSecret in release mode.
const minSecretLength = 32

// Validate checks modes and limits, and in release mode refuses missing,
// short or development secrets.
func (c *Config) Validate() error {
	var errs []error

	switch c.SessionMode {
	case SessionModeSession, SessionModeStateless:
	default:
		errs = append(errs, fmt.Errorf("unknown session mode %q", c.SessionMode))
	}

	switch c.DeliveryMode {
	case DeliveryModeInline:
	case DeliveryModeQueue:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("delivery mode queue requires a redis url"))
		}
		if c.DeliveryWorkers <= 0 {
			errs = append(errs, errors.New("delivery workers must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown delivery mode %q", c.DeliveryMode))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base url %q must be absolute", c.BaseURL))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, errors.New("db max open conns must be positive"))
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 {
		errs = append(errs, errors.New("login throttle limits must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.HMACSecret.IsEmpty() || c.SessionSecret.IsEmpty() {
		errs = append(errs, errors.New("hmac and session secrets are required"))
	}

	if c.ReleaseMode {
		if len(c.HMACSecret.Bytes()) < minSecretLength || string(c.HMACSecret.Bytes()) == devHMACSecret {
			errs = append(errs, fmt.Errorf("hmac secret must be at least %d bytes and not the development default", minSecretLength))
		}
		if len(c.SessionSecret.Bytes()) < minSecretLength || string(c.SessionSecret.Bytes()) == devSessionSecret {
			errs = append(errs, fmt.Errorf("session secret must be at least %d bytes and not the development default", minSecretLength))
		}
		if c.EmailAuthToken.IsEmpty() {
			errs = append(errs, errors.New("email auth token is required in release mode"))
		}
	}

	return errors.Join(errs...)
}
