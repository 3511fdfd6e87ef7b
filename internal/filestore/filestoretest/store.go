// Package filestoretest provides an in-memory filestore.Store for tests.
package filestoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/filestore"
)

type stored struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Store keeps objects in memory, keyed by bucket then key.
// Buckets spring into existence on first write.
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[string]stored
}

var _ filestore.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{buckets: make(map[string]map[string]stored)}
}

// Bytes returns the content of an object, or nil when it does not exist.
func (s *Store) Bytes(bucket, key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil
	}
	return obj.data
}

// ContentType returns the stored content type of an object.
func (s *Store) ContentType(bucket, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[bucket][key].contentType
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("bucket %q not found", bucket))
	}

	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []filestore.ObjectInfo
	for _, k := range keys {
		out = append(out, s.info(k, objs[k]))
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("object %s/%s not found", bucket, key))
	}
	info := s.info(key, obj)
	return &object{ReadCloser: io.NopCloser(bytes.NewReader(obj.data)), info: &info}, nil
}

func (s *Store) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("object %s/%s not found", bucket, key))
	}
	info := s.info(key, obj)
	return &info, nil
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read upload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]stored)
	}
	obj := stored{data: data, contentType: contentType, modified: time.Now()}
	s.buckets[bucket][key] = obj
	info := s.info(key, obj)
	return &info, nil
}

func (s *Store) PresignGetURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s/%s?ttl=%s", bucket, key, ttl), nil
}

func (s *Store) info(key string, obj stored) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
		IsDir:        strings.HasSuffix(key, "/"),
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
