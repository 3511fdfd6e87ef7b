package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/mdbread/internal/config"
	"github.com/koustreak/mdbread/internal/database"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvAccessKey, config.EnvSecretKey, config.EnvDatabaseDSN} {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	tools := cfg.ToolsConfig()
	assert.Equal(t, mdbtools.DefaultConfig(), tools)
	assert.Equal(t, "info", cfg.LoggerConfig().Level)
	assert.Equal(t, database.DriverPostgres, cfg.DatabaseConfig().Driver)
	assert.Equal(t, "localhost:9000", cfg.FileStoreConfig().Endpoint)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr func(error) bool
		check   func(*testing.T, *config.Config)
	}{
		{
			name: "full file",
			file: "full.yaml",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, mdbtools.DialectPostgres, cfg.ToolsConfig().Dialect)
				assert.Equal(t, 2*time.Minute, cfg.ToolsConfig().Timeout)
				assert.Equal(t, "mdb-export", cfg.ToolsConfig().ExportCmd)
				assert.Equal(t, "debug", cfg.LoggerConfig().Level)
				assert.Equal(t, "console", cfg.LoggerConfig().Format)
				assert.Equal(t, "0.0.0.0:9090", cfg.ServerConfig().Addr)
				assert.Equal(t, 30*time.Second, cfg.ServerConfig().WriteTimeout)
				assert.Equal(t, 10*time.Second, cfg.ServerConfig().ShutdownTimeout)

				fs := cfg.FileStoreConfig()
				assert.Equal(t, "minio.internal:9000", fs.Endpoint)
				assert.Equal(t, "file-key", fs.AccessKey)
				assert.True(t, fs.UseSSL)
				assert.Equal(t, "access-files", fs.DefaultBucket)
				assert.Equal(t, "dumps", fs.Prefix)

				db := cfg.DatabaseConfig()
				assert.Equal(t, database.DriverMySQL, db.Driver)
				assert.Equal(t, "mdbread:secret@tcp(localhost:3306)/biblio", db.DSN)
				assert.Equal(t, int32(8), db.MaxConns)
				assert.Equal(t, int32(1), db.MinConns)
				assert.Equal(t, 15*time.Second, db.StatementTimeout)
				assert.NoError(t, db.Validate())
			},
		},
		{
			name: "partial file keeps defaults",
			file: "partial.yaml",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, mdbtools.DialectMySQL, cfg.ToolsConfig().Dialect)
				assert.Equal(t, "mdb-tables", cfg.ToolsConfig().TablesCmd)
				assert.Equal(t, "json", cfg.LoggerConfig().Format)
			},
		},
		{
			name: "empty file",
			file: "empty.yaml",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default().Tools, cfg.Tools)
			},
		},
		{name: "unknown key", file: "unknown_key.yaml", wantErr: errs.IsInvalidInput},
		{name: "bad dialect", file: "bad_dialect.yaml", wantErr: errs.IsInvalidInput},
		{name: "bad driver", file: "bad_driver.yaml", wantErr: errs.IsInvalidInput},
		{name: "missing file", file: "nope.yaml", wantErr: errs.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join("testdata", tt.file)
			cfg, err := config.Load(path)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Source)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, config.Default().Tools, cfg.Tools)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvAccessKey, "env-access")
	t.Setenv(config.EnvSecretKey, "env-secret")
	t.Setenv(config.EnvDatabaseDSN, "postgres://env@localhost/biblio")

	cfg, err := config.Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-access", cfg.FileStoreConfig().AccessKey)
	assert.Equal(t, "env-secret", cfg.FileStoreConfig().SecretKey)
	assert.Equal(t, "postgres://env@localhost/biblio", cfg.DatabaseConfig().DSN)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg = config.Default()
	cfg.Log.Format = "xml"
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg = config.Default()
	cfg.Server.Addr = ""
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))
}
