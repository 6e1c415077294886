package store

import (
	"bytes"
	"context"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/maypok86/otter"
	"github.com/samber/mo"
	"github.com/thanos-io/objstore"
	"go.uber.org/zap"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/logger"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/sstable"
	"github.com/basaltdb/basalt-go/internal/sstable/block"
	"github.com/basaltdb/basalt-go/internal/sstable/bloom"
)

// ------------------------------------------------
// TableStore is an abstraction over object storage
// to read/write SSTable data
// ------------------------------------------------

type TableStore struct {
	mu            sync.RWMutex
	bucket        objstore.Bucket
	sstConfig     sstable.Config
	rootPath      string
	walPath       string
	compactedPath string
	filterCache   otter.Cache[sstable.ID, mo.Option[bloom.Filter]]
}

func NewTableStore(bucket objstore.Bucket, config sstable.Config, rootPath string) *TableStore {
	cache, err := otter.MustBuilder[sstable.ID, mo.Option[bloom.Filter]](1000).Build()
	assert.True(err == nil, "filter cache construction must not fail")
	return &TableStore{
		bucket:        bucket,
		sstConfig:     config,
		rootPath:      rootPath,
		walPath:       "wal",
		compactedPath: "compacted",
		filterCache:   cache,
	}
}

// GetWalSSTList returns ids of WAL SSTs newer than walIDLastCompacted, in
// ascending order. Used on recovery to find WALs that never reached L0.
func (ts *TableStore) GetWalSSTList(walIDLastCompacted uint64) ([]uint64, error) {
	walList := make([]uint64, 0)
	walPath := path.Join(ts.rootPath, ts.walPath)

	err := ts.bucket.Iter(context.Background(), walPath, func(filepath string) error {
		if strings.Contains(filepath, ".sst") {
			walID, err := ts.parseID(filepath, ".sst")
			if err == nil && walID > walIDLastCompacted {
				walList = append(walList, walID)
			}
		}
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		logger.Error("unable to iterate over the table list", zap.Error(err))
		return nil, common.ErrObjectStore
	}

	slices.Sort(walList)
	return walList, nil
}

func (ts *TableStore) TableWriter(sstID sstable.ID) *EncodedSSTableWriter {
	return &EncodedSSTableWriter{
		sstID:      sstID,
		builder:    ts.TableBuilder(),
		tableStore: ts,
	}
}

func (ts *TableStore) TableBuilder() *sstable.Builder {
	return sstable.NewBuilder(ts.sstConfig)
}

// WriteSST uploads a fully built SST and returns its catalog handle.
func (ts *TableStore) WriteSST(ctx context.Context, id sstable.ID, encodedSST *sstable.Table) (*sstable.Handle, error) {
	sstPath := ts.sstPath(id)

	blocksData := make([]byte, 0)
	for i := 0; i < encodedSST.Blocks.Len(); i++ {
		blocksData = append(blocksData, encodedSST.Blocks.At(i)...)
	}

	err := ts.bucket.Upload(ctx, sstPath, bytes.NewReader(blocksData))
	if err != nil {
		logger.Error("unable to upload SST", zap.String("path", sstPath), zap.Error(err))
		return nil, common.ErrObjectStore
	}

	ts.cacheFilter(id, encodedSST.Bloom)
	return sstable.NewHandle(id, encodedSST.Info), nil
}

func (ts *TableStore) OpenSST(id sstable.ID) (*sstable.Handle, error) {
	obj := ReadOnlyObject{ts.bucket, ts.sstPath(id)}
	sstInfo, err := ts.sstConfig.ReadInfo(obj)
	if err != nil {
		logger.Error("unable to open table", zap.Error(err))
		return nil, err
	}

	return sstable.NewHandle(id, sstInfo), nil
}

func (ts *TableStore) ReadBlocks(sstHandle *sstable.Handle, blocksRange common.Range) ([]block.Block, error) {
	obj := ReadOnlyObject{ts.bucket, ts.sstPath(sstHandle.Id)}
	index, err := ts.sstConfig.ReadIndex(sstHandle.Info, obj)
	if err != nil {
		return nil, err
	}
	return ts.sstConfig.ReadBlocks(sstHandle.Info, index, blocksRange, obj)
}

// ReadBlocksUsingIndex reads specified blocks from an SSTable using the
// provided index.
func (ts *TableStore) ReadBlocksUsingIndex(
	sstHandle *sstable.Handle,
	blocksRange common.Range,
	index *sstable.Index,
) ([]block.Block, error) {
	obj := ReadOnlyObject{ts.bucket, ts.sstPath(sstHandle.Id)}
	return ts.sstConfig.ReadBlocks(sstHandle.Info, index, blocksRange, obj)
}

func (ts *TableStore) cacheFilter(sstID sstable.ID, filter mo.Option[bloom.Filter]) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.filterCache.Set(sstID, filter)
}

func (ts *TableStore) ReadFilter(sstHandle *sstable.Handle) (mo.Option[bloom.Filter], error) {
	ts.mu.RLock()
	val, ok := ts.filterCache.Get(sstHandle.Id)
	ts.mu.RUnlock()
	if ok {
		return val, nil
	}

	obj := ReadOnlyObject{ts.bucket, ts.sstPath(sstHandle.Id)}
	filtr, err := ts.sstConfig.ReadFilter(sstHandle.Info, obj)
	if err != nil {
		return mo.None[bloom.Filter](), err
	}

	ts.cacheFilter(sstHandle.Id, filtr)
	return filtr, nil
}

func (ts *TableStore) ReadIndex(sstHandle *sstable.Handle) (*sstable.Index, error) {
	obj := ReadOnlyObject{ts.bucket, ts.sstPath(sstHandle.Id)}
	index, err := ts.sstConfig.ReadIndex(sstHandle.Info, obj)
	if err != nil {
		return nil, err
	}
	return index, nil
}

func (ts *TableStore) sstPath(id sstable.ID) string {
	if id.Type == sstable.WAL {
		return path.Join(ts.rootPath, ts.walPath, id.Value+".sst")
	} else if id.Type == sstable.Compacted {
		return path.Join(ts.rootPath, ts.compactedPath, id.Value+".sst")
	}
	return ""
}

func (ts *TableStore) parseID(filepath string, expectedExt string) (uint64, error) {
	assert.True(path.Ext(filepath) == expectedExt, "invalid wal file")

	base := path.Base(filepath)
	idStr := strings.Replace(base, expectedExt, "", 1)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		logger.Warn("invalid id", zap.Error(err))
		return 0, common.ErrInvalidDBState
	}

	return id, nil
}

func (ts *TableStore) Clone() *TableStore {
	cache, err := otter.MustBuilder[sstable.ID, mo.Option[bloom.Filter]](1000).Build()
	assert.True(err == nil, "filter cache construction must not fail")
	return &TableStore{
		bucket:        ts.bucket,
		sstConfig:     ts.sstConfig.Clone(),
		rootPath:      ts.rootPath,
		walPath:       ts.walPath,
		compactedPath: ts.compactedPath,
		filterCache:   cache,
	}
}

// ------------------------------------------------
// EncodedSSTableWriter
// ------------------------------------------------

// EncodedSSTableWriter adds rows to an SST one at a time, moving each
// finished block into an in-memory buffer; the whole table is held in that
// buffer and uploaded in one piece at Close. The flush path builds small
// tables and uses WriteSST directly.
type EncodedSSTableWriter struct {
	sstID      sstable.ID
	builder    *sstable.Builder
	tableStore *TableStore

	// TODO: bound this buffer and flush to the object store in parts once
	//  the bucket API grows multipart upload support.
	buffer        []byte
	blocksWritten uint64
}

func (w *EncodedSSTableWriter) Add(key []byte, value mo.Option[[]byte]) error {
	err := w.builder.Add(key, value)
	if err != nil {
		logger.Error("unable to add key value", zap.Error(err))
		return err
	}

	for {
		blk, ok := w.builder.NextBlock().Get()
		if !ok {
			break
		}
		w.buffer = append(w.buffer, blk...)
		w.blocksWritten += 1
	}

	return nil
}

func (w *EncodedSSTableWriter) Written() uint64 {
	return w.blocksWritten
}

func (w *EncodedSSTableWriter) Close(ctx context.Context) (*sstable.Handle, error) {
	encodedSST, err := w.builder.Build()
	if err != nil {
		logger.Error("unable to close SSTable", zap.Error(err))
		return nil, err
	}

	blocksData := w.buffer
	for {
		if encodedSST.Blocks.Len() == 0 {
			break
		}
		blocksData = append(blocksData, encodedSST.Blocks.PopFront()...)
	}

	sstPath := w.tableStore.sstPath(w.sstID)
	err = w.tableStore.bucket.Upload(ctx, sstPath, bytes.NewReader(blocksData))
	if err != nil {
		return nil, common.ErrObjectStore
	}

	w.tableStore.cacheFilter(w.sstID, encodedSST.Bloom)
	return sstable.NewHandle(w.sstID, encodedSST.Info), nil
}

// ------------------------------------------------
// ReadOnlyObject
// ------------------------------------------------

type ReadOnlyObject struct {
	bucket objstore.Bucket
	path   string
}

func (r ReadOnlyObject) Len() (int, error) {
	attr, err := r.bucket.Attributes(context.Background(), r.path)
	if err != nil {
		logger.Warn("invalid object", zap.Error(err))
		return 0, common.ErrObjectStore
	}
	return int(attr.Size), nil
}

func (r ReadOnlyObject) ReadRange(rng common.Range) ([]byte, error) {
	read, err := r.bucket.GetRange(context.Background(), r.path, int64(rng.Start), int64(rng.End-rng.Start))
	if err != nil {
		logger.Warn("invalid object", zap.Error(err))
		return nil, common.ErrObjectStore
	}
	defer read.Close()

	data, err := io.ReadAll(read)
	if err != nil {
		logger.Error("unable to read data", zap.Error(err))
		return nil, common.ErrObjectStore
	}

	return data, nil
}

func (r ReadOnlyObject) Read() ([]byte, error) {
	read, err := r.bucket.Get(context.Background(), r.path)
	if err != nil {
		logger.Error("unable to get object", zap.Error(err))
		return nil, common.ErrObjectStore
	}
	defer read.Close()

	data, err := io.ReadAll(read)
	if err != nil {
		logger.Error("unable to read data", zap.Error(err))
		return nil, common.ErrObjectStore
	}

	return data, nil
}
