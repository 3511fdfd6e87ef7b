// Package config loads the mdbread YAML configuration file.
//
// A file overlays the built-in defaults, so every key is optional:
//
//	tools:
//	  dialect: postgres
//	  timeout: 2m
//	log:
//	  level: debug
//	  format: console
//	server:
//	  addr: 0.0.0.0:8080
//	filestore:
//	  endpoint: localhost:9000
//	  bucket: access-files
//	database:
//	  driver: postgres
//	  dsn: postgres://mdbread@localhost:5432/biblio
//
// Secrets are better kept out of the file; the environment variables
// MDBREAD_FILESTORE_ACCESS_KEY, MDBREAD_FILESTORE_SECRET_KEY and
// MDBREAD_DATABASE_DSN override the matching keys.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/koustreak/mdbread/internal/database"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/filestore"
	"github.com/koustreak/mdbread/internal/logger"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/koustreak/mdbread/internal/server"
	"go.yaml.in/yaml/v3"
)

// Environment variables read by Load.
const (
	EnvAccessKey   = "MDBREAD_FILESTORE_ACCESS_KEY"
	EnvSecretKey   = "MDBREAD_FILESTORE_SECRET_KEY"
	EnvDatabaseDSN = "MDBREAD_DATABASE_DSN"
)

// Config is the whole configuration file.
type Config struct {
	Tools     Tools     `yaml:"tools"`
	Log       Log       `yaml:"log"`
	Server    Server    `yaml:"server"`
	FileStore FileStore `yaml:"filestore"`
	Database  Database  `yaml:"database"`

	// Source is the file the config was read from; empty for defaults.
	Source string `yaml:"-"`
}

// Tools configures the mdbtools commands.
type Tools struct {
	Tables  string        `yaml:"tables"`
	Schema  string        `yaml:"schema"`
	Export  string        `yaml:"export"`
	Dialect string        `yaml:"dialect"`
	Timeout time.Duration `yaml:"timeout"`
}

// Log configures the process logger.
type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	TimeFormat string `yaml:"time_format"`
}

// Server configures the HTTP API.
type Server struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// FileStore configures object storage.
type FileStore struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Database configures the load target.
type Database struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// Default mirrors the DefaultConfig constructors of every package.
func Default() *Config {
	tools := mdbtools.DefaultConfig()
	lg := logger.DefaultConfig()
	srv := server.DefaultConfig()
	fs := filestore.DefaultConfig("localhost:9000", "", "")
	db := database.DefaultConfig("")

	return &Config{
		Tools: Tools{
			Tables:  tools.TablesCmd,
			Schema:  tools.SchemaCmd,
			Export:  tools.ExportCmd,
			Dialect: string(tools.Dialect),
			Timeout: tools.Timeout,
		},
		Log: Log{
			Level:      lg.Level,
			Format:     lg.Format,
			TimeFormat: lg.TimeFormat,
		},
		Server: Server{
			Addr:              srv.Addr,
			ReadHeaderTimeout: srv.ReadHeaderTimeout,
			WriteTimeout:      srv.WriteTimeout,
			IdleTimeout:       srv.IdleTimeout,
			ShutdownTimeout:   srv.ShutdownTimeout,
		},
		FileStore: FileStore{
			Endpoint: fs.Endpoint,
			UseSSL:   fs.UseSSL,
		},
		Database: Database{
			Driver:          string(db.Driver),
			MaxConns:        db.MaxConns,
			MinConns:        db.MinConns,
			MaxConnLifetime: db.MaxConnLifetime,
			MaxConnIdleTime: db.MaxConnIdleTime,
			ConnectTimeout:  db.ConnectTimeout,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("config file %s not found", path), err)
			}
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("cannot read config file %s", path), err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid config file %s", path), err)
		}
		cfg.Source = path
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAccessKey); ok {
		c.FileStore.AccessKey = v
	}
	if v, ok := os.LookupEnv(EnvSecretKey); ok {
		c.FileStore.SecretKey = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok {
		c.Database.DSN = v
	}
}

// Validate checks the values a typo would break. Connection settings are
// checked by the commands that use them.
func (c *Config) Validate() error {
	if err := c.ToolsConfig().Validate(); err != nil {
		return err
	}
	if !logger.ValidLevel(c.Log.Level) {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown log level: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown log format: %q", c.Log.Format))
	}
	switch database.Driver(c.Database.Driver) {
	case database.DriverPostgres, database.DriverMySQL:
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported database driver: %q", c.Database.Driver))
	}
	return c.ServerConfig().Validate()
}

// ToolsConfig converts the tools section.
func (c *Config) ToolsConfig() *mdbtools.Config {
	return &mdbtools.Config{
		TablesCmd: c.Tools.Tables,
		SchemaCmd: c.Tools.Schema,
		ExportCmd: c.Tools.Export,
		Dialect:   mdbtools.Dialect(c.Tools.Dialect),
		Timeout:   c.Tools.Timeout,
	}
}

// LoggerConfig converts the log section. Output goes to stderr.
func (c *Config) LoggerConfig() *logger.Config {
	lg := logger.DefaultConfig()
	lg.Level = c.Log.Level
	lg.Format = c.Log.Format
	lg.TimeFormat = c.Log.TimeFormat
	return lg
}

// ServerConfig converts the server section.
func (c *Config) ServerConfig() *server.Config {
	return &server.Config{
		Addr:              c.Server.Addr,
		ReadHeaderTimeout: c.Server.ReadHeaderTimeout,
		WriteTimeout:      c.Server.WriteTimeout,
		IdleTimeout:       c.Server.IdleTimeout,
		ShutdownTimeout:   c.Server.ShutdownTimeout,
	}
}

// FileStoreConfig converts the filestore section.
func (c *Config) FileStoreConfig() *filestore.Config {
	fs := filestore.DefaultConfig(c.FileStore.Endpoint, c.FileStore.AccessKey, c.FileStore.SecretKey)
	fs.UseSSL = c.FileStore.UseSSL
	fs.Region = c.FileStore.Region
	fs.DefaultBucket = c.FileStore.Bucket
	fs.Prefix = c.FileStore.Prefix
	return fs
}

// DatabaseConfig converts the database section.
func (c *Config) DatabaseConfig() *database.Config {
	return &database.Config{
		Driver:           database.Driver(c.Database.Driver),
		DSN:              c.Database.DSN,
		MaxConns:         c.Database.MaxConns,
		MinConns:         c.Database.MinConns,
		MaxConnLifetime:  c.Database.MaxConnLifetime,
		MaxConnIdleTime:  c.Database.MaxConnIdleTime,
		ConnectTimeout:   c.Database.ConnectTimeout,
		StatementTimeout: c.Database.StatementTimeout,
	}
}
