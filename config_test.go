// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestParseConfig(t *testing.T) {
	c := qt.New(t)

	cfg, err := ParseConfig([]byte(`
call_timeout = "30s"
handler_timeout = "5s"
concurrent_dispatch = true
rate_limit = 20.0
logging = "<root>=WARNING;tspace.rpc=DEBUG"
`))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, &Config{
		CallTimeout:        30 * time.Second,
		HandlerTimeout:     5 * time.Second,
		ConcurrentDispatch: true,
		RateLimit:          20,
		RateBurst:          21,
		MaxFrameSize:       DefaultMaxFrameSize,
		Logging:            "<root>=WARNING;tspace.rpc=DEBUG",
	})

	o := newOptions(cfg.Options())
	c.Assert(o.callTimeout, qt.Equals, 30*time.Second)
	c.Assert(o.concurrent, qt.IsTrue)
	c.Assert(o.maxFrameSize, qt.Equals, DefaultMaxFrameSize)
	c.Assert(o.middleware, qt.HasLen, 3)
}

func TestParseConfigDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := ParseConfig(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.MaxFrameSize, qt.Equals, DefaultMaxFrameSize)
	c.Assert(cfg.ConfigureLogging(), qt.IsNil)

	o := newOptions(cfg.Options(WithMaxFrameSize(1024)))
	c.Assert(o.callTimeout, qt.Equals, time.Duration(0))
	c.Assert(o.maxFrameSize, qt.Equals, 1024)
	c.Assert(o.middleware, qt.HasLen, 1)
}

func TestParseConfigInvalid(t *testing.T) {
	c := qt.New(t)

	for _, text := range []string{
		`call_timeout = "-1s"`,
		`rate_limit = -2.0`,
		`max_frame_size = -1`,
		`call_timeout = "soon"`,
		`logging = "=="`,
	} {
		_, err := ParseConfig([]byte(text))
		c.Check(err, qt.Not(qt.IsNil), qt.Commentf(text))
	}
}

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "endpoint.toml")
	c.Assert(os.WriteFile(path, []byte(`call_timeout = "2s"`), 0o600), qt.IsNil)

	cfg, err := LoadConfig(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.CallTimeout, qt.Equals, 2*time.Second)

	_, err = LoadConfig(filepath.Join(c.TempDir(), "missing.toml"))
	c.Assert(err, qt.ErrorMatches, "reading config .*")
}
