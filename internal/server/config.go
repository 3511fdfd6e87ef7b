package server

import (
	"time"

	"github.com/koustreak/mdbread/internal/errs"
)

// Config holds the HTTP listener settings.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration // covers a full table dump; keep above the tool timeout
	IdleTimeout       time.Duration

	// ShutdownTimeout bounds graceful shutdown once the serve context ends.
	ShutdownTimeout time.Duration
}

// DefaultConfig listens on localhost:8080.
func DefaultConfig() *Config {
	return &Config{
		Addr:              "127.0.0.1:8080",
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Validate checks the listen address.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errs.New(errs.ErrKindInvalidInput, "server address must not be empty")
	}
	return nil
}
