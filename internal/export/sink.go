package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/filestore"
)

// Sink receives the files an Exporter produces.
type Sink interface {
	// Put stores data under name, replacing anything already there.
	// It returns where the file ended up (a path or URL) for the report.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// DirSink writes files into a local directory, creating it when needed.
type DirSink struct {
	Dir string
}

func (s *DirSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errs.Wrap(errs.ErrKindQueryFailed, "failed to create export directory", err)
	}
	p := filepath.Join(s.Dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("failed to write %s", p), err)
	}
	return p, nil
}

// StoreSink uploads files into a bucket under Prefix. When LinkTTL is set
// the returned location is a presigned download URL instead of the key.
type StoreSink struct {
	Store   filestore.Store
	Bucket  string
	Prefix  string
	LinkTTL time.Duration
}

func (s *StoreSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := path.Join(s.Prefix, name)
	if _, err := s.Store.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	if s.LinkTTL > 0 {
		return s.Store.PresignGetURL(ctx, s.Bucket, key, s.LinkTTL)
	}
	return s.Bucket + "/" + key, nil
}
