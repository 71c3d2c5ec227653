// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"golang.org/x/time/rate"
)

// Config holds the tunables of an endpoint as read from a TOML file.
//
//	call_timeout = "30s"
//	handler_timeout = "10s"
//	concurrent_dispatch = true
//	rate_limit = 50.0
//	rate_burst = 100
//	max_frame_size = 1048576
//	logging = "<root>=WARNING;tspace.rpc=DEBUG"
type Config struct {
	CallTimeout        time.Duration `toml:"call_timeout"`
	HandlerTimeout     time.Duration `toml:"handler_timeout"`
	ConcurrentDispatch bool          `toml:"concurrent_dispatch"`
	RateLimit          float64       `toml:"rate_limit"`
	RateBurst          int           `toml:"rate_burst"`
	MaxFrameSize       int           `toml:"max_frame_size"`
	Logging            string        `toml:"logging"`
}

// LoadConfig reads and validates the TOML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading config %s", path)
	}
	cfg, err := ParseConfig(data)
	return cfg, errors.Annotatef(err, "config %s", path)
}

// ParseConfig decodes and validates TOML data.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Trace(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.CallTimeout < 0 {
		return errors.NotValidf("negative call_timeout")
	}
	if cfg.HandlerTimeout < 0 {
		return errors.NotValidf("negative handler_timeout")
	}
	if cfg.RateLimit < 0 {
		return errors.NotValidf("negative rate_limit")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = int(cfg.RateLimit) + 1
	}
	if cfg.MaxFrameSize < 0 {
		return errors.NotValidf("negative max_frame_size")
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	if cfg.Logging != "" {
		if _, err := loggo.ParseConfigString(cfg.Logging); err != nil {
			return errors.Annotate(err, "logging")
		}
	}
	return nil
}

// ConfigureLogging applies the logging specification, if any.
func (cfg *Config) ConfigureLogging() error {
	if cfg.Logging == "" {
		return nil
	}
	return errors.Trace(loggo.ConfigureLoggers(cfg.Logging))
}

// Options turns the configuration into endpoint options. Middleware is
// ordered logging, rate limit, handler timeout.
func (cfg *Config) Options(extra ...Option) []Option {
	o := newOptions(extra)
	mw := []Middleware{LoggingMiddleware(o.clock)}
	if cfg.RateLimit > 0 {
		mw = append(mw, RateLimitMiddleware(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	if cfg.HandlerTimeout > 0 {
		mw = append(mw, TimeoutMiddleware(o.clock, cfg.HandlerTimeout))
	}
	opts := []Option{
		WithCallTimeout(cfg.CallTimeout),
		WithConcurrentDispatch(cfg.ConcurrentDispatch),
		WithMaxFrameSize(cfg.MaxFrameSize),
		WithMiddleware(mw...),
	}
	return append(opts, extra...)
}
