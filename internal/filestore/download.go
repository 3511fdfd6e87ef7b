package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/koustreak/mdbread/internal/errs"
)

// databaseExts are the extensions of files the mdbtools can read.
var databaseExts = []string{".mdb", ".accdb"}

// IsDatabaseKey reports whether key names a database file by extension.
func IsDatabaseKey(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	for _, e := range databaseExts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListDatabases returns the database files stored under prefix in bucket.
func ListDatabases(ctx context.Context, store Store, bucket, prefix string) ([]ObjectInfo, error) {
	objects, err := store.ListObjects(ctx, bucket, ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		return nil, err
	}

	var dbs []ObjectInfo
	for _, obj := range objects {
		if !obj.IsDir && IsDatabaseKey(obj.Key) {
			dbs = append(dbs, obj)
		}
	}
	return dbs, nil
}

// Download copies the object at key inside bucket to a new file in dir and
// returns its path. The external tools only read local files, so a database
// kept in object storage is staged on disk first. The caller removes the
// file when done.
func Download(ctx context.Context, store Store, bucket, key, dir string) (string, error) {
	if bucket == "" || key == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "bucket and key must not be empty")
	}

	obj, err := store.GetObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	f, err := os.CreateTemp(dir, "mdbread-*"+path.Ext(key))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindQueryFailed, "failed to create local copy", err)
	}

	n, err := io.Copy(f, obj)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("failed to download %s/%s", bucket, key), err)
	}

	if info := obj.Info(); info != nil && info.Size >= 0 && n != info.Size {
		_ = os.Remove(f.Name())
		return "", errs.New(errs.ErrKindQueryFailed,
			fmt.Sprintf("short download of %s/%s: got %d of %d bytes", bucket, key, n, info.Size))
	}

	return f.Name(), nil
}
