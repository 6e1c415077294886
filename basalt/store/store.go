package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sync"

	"github.com/thanos-io/objstore"
	"go.uber.org/zap"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/logger"
	"github.com/basaltdb/basalt-go/internal"
)

// errObjNotFound distinguishes an absent object from a transport failure.
var errObjNotFound = errors.New("object not found")

// ObjectStore is the narrow surface the manifest layer needs from a bucket.
// putIfNotExists is the only operation required to be atomic; everything
// else may be eventually consistent.
type ObjectStore interface {
	putIfNotExists(objPath string, data []byte) error
	get(objPath string) ([]byte, error)
	list(prefix string) ([]string, error)
}

// DelegatingObjectStore adapts an objstore.Bucket. The bucket API has no
// conditional PUT, so putIfNotExists serializes the existence check and the
// upload behind a process-local mutex; across processes the conflict window
// is the backend's.
type DelegatingObjectStore struct {
	mu       sync.Mutex
	rootPath string
	bucket   objstore.Bucket
}

func newDelegatingObjectStore(rootPath string, bucket objstore.Bucket) *DelegatingObjectStore {
	return &DelegatingObjectStore{rootPath: rootPath, bucket: bucket}
}

func (d *DelegatingObjectStore) fullPath(objPath string) string {
	return path.Join(d.rootPath, objPath)
}

func (d *DelegatingObjectStore) putIfNotExists(objPath string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fullPath := d.fullPath(objPath)
	ctx := context.Background()
	exists, err := d.bucket.Exists(ctx, fullPath)
	if err != nil {
		logger.Error("unable to check object existence", zap.String("path", fullPath), zap.Error(err))
		return common.ErrObjectStore
	}
	if exists {
		return internal.ErrAlreadyExists
	}
	if err := d.bucket.Upload(ctx, fullPath, bytes.NewReader(data)); err != nil {
		logger.Error("unable to upload object", zap.String("path", fullPath), zap.Error(err))
		return common.ErrObjectStore
	}
	return nil
}

func (d *DelegatingObjectStore) get(objPath string) ([]byte, error) {
	fullPath := d.fullPath(objPath)
	reader, err := d.bucket.Get(context.Background(), fullPath)
	if err != nil {
		if d.bucket.IsObjNotFoundErr(err) {
			return nil, errObjNotFound
		}
		logger.Error("unable to get object", zap.String("path", fullPath), zap.Error(err))
		return nil, common.ErrObjectStore
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Error("unable to read object", zap.String("path", fullPath), zap.Error(err))
		return nil, common.ErrObjectStore
	}
	return data, nil
}

func (d *DelegatingObjectStore) list(prefix string) ([]string, error) {
	fullPrefix := d.fullPath(prefix)
	objPaths := make([]string, 0)
	err := d.bucket.Iter(context.Background(), fullPrefix, func(objPath string) error {
		objPaths = append(objPaths, objPath)
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		logger.Error("unable to list objects", zap.String("prefix", fullPrefix), zap.Error(err))
		return nil, common.ErrObjectStore
	}
	return objPaths, nil
}
