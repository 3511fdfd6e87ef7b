package filestore

import (
	"fmt"

	"github.com/koustreak/mdbread/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to reach the bucket that stores database
// files and receives published dumps.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	Endpoint string

	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region is only needed by region-aware backends such as AWS S3.
	Region string

	// DefaultBucket is the bucket used when a command does not name one.
	DefaultBucket string

	// Prefix is prepended to the keys of published dumps.
	Prefix string
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// Validate checks the provider and endpoint. Credentials may be empty for
// anonymous buckets.
func (c *Config) Validate() error {
	if c.Provider != ProviderMinIO {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported filestore provider: %q", c.Provider))
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "filestore endpoint must not be empty")
	}
	return nil
}

// Bucket returns name, or DefaultBucket when name is empty. It fails when
// neither is set.
func (c *Config) Bucket(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if c.DefaultBucket == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "no bucket given and no default bucket configured")
	}
	return c.DefaultBucket, nil
}
