package basalt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/thanos-io/objstore"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/config"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/basalt/store"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

type DB struct {
	state         *state.DBState
	opts          config.DBOptions
	tableStore    *store.TableStore
	manifestStore *store.ManifestStore
	stats         *Stats

	walFlushNotifierCh  chan context.Context
	memtableFlushQueue  *memtableFlushQueue
	walFlushTaskWG      *sync.WaitGroup
	memtableFlushTaskWG *sync.WaitGroup

	// walFlushMu serializes FlushWAL between the ticker task and callers.
	walFlushMu sync.Mutex
}

func Open(ctx context.Context, path string, bucket objstore.Bucket) (*DB, error) {
	return OpenWithOptions(ctx, path, bucket, config.DefaultDBOptions())
}

func OpenWithOptions(ctx context.Context, path string, bucket objstore.Bucket, options config.DBOptions) (*DB, error) {
	if options.Log == nil {
		options.Log = slog.Default()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	conf := sstable.DefaultConfig()
	conf.MinFilterKeys = options.MinFilterKeys
	conf.Compression = options.CompressionCodec
	tableStore := store.NewTableStore(bucket, conf, path)
	manifestStore := store.NewManifestStore(path, bucket)

	storedManifest, err := getStoredManifest(manifestStore)
	if err != nil {
		return nil, err
	}

	db := &DB{
		state:               state.NewDBState(state.CoreFromSnapshot(storedManifest.DbState())),
		opts:                options,
		tableStore:          tableStore,
		manifestStore:       manifestStore,
		stats:               newStats(),
		walFlushNotifierCh:  make(chan context.Context, 1),
		memtableFlushQueue:  newMemtableFlushQueue(),
		walFlushTaskWG:      &sync.WaitGroup{},
		memtableFlushTaskWG: &sync.WaitGroup{},
	}

	if err := db.replayWAL(ctx); err != nil {
		return nil, err
	}

	// Claim the writer epoch before spawning anything that publishes.
	fenceableManifest, err := store.InitFenceableManifestWriter(storedManifest)
	if err != nil {
		return nil, err
	}

	db.spawnWALFlushTask(db.walFlushNotifierCh, db.walFlushTaskWG)
	db.spawnMemtableFlushTask(fenceableManifest, db.memtableFlushQueue, db.memtableFlushTaskWG)
	return db, nil
}

func getStoredManifest(manifestStore *store.ManifestStore) (*store.StoredManifest, error) {
	sm, err := store.LoadStoredManifest(manifestStore)
	if err != nil {
		return nil, err
	}
	if stored, ok := sm.Get(); ok {
		return &stored, nil
	}
	return store.NewStoredManifest(manifestStore, state.NewCoreDBState().Snapshot())
}

// Close drains both flush tasks. The WAL is flushed one final time and the
// memtable flusher publishes a final manifest after its channel drains.
func (db *DB) Close() error {
	db.walFlushNotifierCh <- context.Background()
	db.walFlushTaskWG.Wait()

	db.memtableFlushQueue.Send(MemtableFlushMsg{Msg: Shutdown})
	db.memtableFlushTaskWG.Wait()
	return nil
}

func (db *DB) Put(key []byte, value []byte) error {
	return db.PutWithOptions(key, value, config.DefaultWriteOptions())
}

func (db *DB) PutWithOptions(key []byte, value []byte, options config.WriteOptions) error {
	assert.True(len(key) > 0, "key cannot be empty")
	if err := db.state.Error(); err != nil {
		return err
	}

	currentWAL := db.state.WAL()
	currentWAL.Put(key, value)
	if options.AwaitDurable {
		return currentWAL.Table().AwaitDurable(context.Background())
	}
	return nil
}

func (db *DB) Delete(key []byte) error {
	return db.DeleteWithOptions(key, config.DefaultWriteOptions())
}

func (db *DB) DeleteWithOptions(key []byte, options config.WriteOptions) error {
	assert.True(len(key) > 0, "key cannot be empty")
	if err := db.state.Error(); err != nil {
		return err
	}

	currentWAL := db.state.WAL()
	currentWAL.Delete(key)
	if options.AwaitDurable {
		return currentWAL.Table().AwaitDurable(context.Background())
	}
	return nil
}

// FlushMemtableToL0 freezes the active memtable and synchronously drains
// the immutable memtable queue through the flush task.
func (db *DB) FlushMemtableToL0() error {
	if !db.state.Memtable().IsEmpty() {
		walID, ok := db.state.Memtable().LastWalID().Get()
		if !ok {
			return common.ErrInvalidDBState
		}
		db.state.FreezeMemtable(walID)
	}

	resp := make(chan error, 1)
	db.memtableFlushQueue.Send(MemtableFlushMsg{Resp: resp, Msg: FlushImmutableMemtables})
	return <-resp
}

// maybeFreezeMemtable seals the memtable once it has grown past the L0 SST
// size and nudges the flush task.
func (db *DB) maybeFreezeMemtable(walID uint64) {
	if db.state.Memtable().Size() < int64(db.opts.L0SSTSizeBytes) {
		return
	}
	db.state.FreezeMemtable(walID)
	db.memtableFlushQueue.Send(MemtableFlushMsg{Msg: FlushImmutableMemtables})
}

// replayWAL applies WAL SSTs that never made it to L0 before the last
// shutdown, oldest first, freezing memtables at the configured size along
// the way.
func (db *DB) replayWAL(ctx context.Context) error {
	lastCompacted := db.state.CoreStateSnapshot().LastCompactedWalSSTID.Load()
	walList, err := db.tableStore.GetWalSSTList(lastCompacted)
	if err != nil {
		return err
	}

	for _, walID := range walList {
		handle, err := db.tableStore.OpenSST(sstable.NewIDWal(walID))
		if err != nil {
			return err
		}
		iter, err := sstable.NewIterator(handle, db.tableStore)
		if err != nil {
			return err
		}
		for {
			entry, ok := iter.NextEntry(ctx)
			if !ok {
				break
			}
			db.state.Memtable().Put(entry)
		}
		if warn := iter.Warnings(); warn != nil {
			return warn.If()
		}
		db.state.Memtable().SetLastWalID(walID)
		db.maybeFreezeMemtableOnReplay(walID)
	}

	if len(walList) > 0 {
		db.state.SetNextWalSstID(walList[len(walList)-1] + 1)
	}
	return nil
}

// maybeFreezeMemtableOnReplay freezes without nudging the flush task, which
// is not running yet during recovery.
func (db *DB) maybeFreezeMemtableOnReplay(walID uint64) {
	if db.state.Memtable().Size() >= int64(db.opts.L0SSTSizeBytes) {
		db.state.FreezeMemtable(walID)
	}
}

// Metrics returns the DB's counter registry.
func (db *DB) Metrics() *Stats {
	return db.stats
}
