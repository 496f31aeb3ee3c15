package redis

import (
	"fmt"
	"net/url"
)

// Config holds Redis connection settings.
// Embed this in your app config for env parsing with caarlos0/env.
//
// The backend is enabled by default only in production; other
// environments fall back to the in-process cache tier unless
// REDIS_ENABLED is set explicitly.
type Config struct {
	Host        string `env:"REDIS_HOST" envDefault:"localhost"`
	Port        int    `env:"REDIS_PORT" envDefault:"6379"`
	Password    string `env:"REDIS_PASSWORD"`
	DB          int    `env:"REDIS_DB" envDefault:"0"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Enabled     *bool  `env:"REDIS_ENABLED"`
}

// IsEnabled reports whether the Redis backend should be used.
// An explicit REDIS_ENABLED wins; otherwise only production enables it.
func (c Config) IsEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return c.Environment == "production"
}

// URL renders the config as a redis:// connection URL for Open.
func (c Config) URL() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port <= 0 || port > 65535 {
		// Invalid ports are corrected to the default rather than failing.
		port = 6379
	}
	db := c.DB
	if db < 0 {
		db = 0
	}

	u := url.URL{
		Scheme: "redis",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   fmt.Sprintf("/%d", db),
	}
	if c.Password != "" {
		u.User = url.UserPassword("", c.Password)
	}
	return u.String()
}
