package basalt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kapetan-io/tackle/random"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/config"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/basalt/store"
	"github.com/basaltdb/basalt-go/internal/sstable"
	"github.com/basaltdb/basalt-go/internal/types"
)

// newManualDB builds a DB around a bucket without spawning the background
// tasks, so flush choreography can be driven synchronously.
func newManualDB(t *testing.T, bucket objstore.Bucket, dbPath string, options config.DBOptions) (*DB, *store.FenceableManifest) {
	t.Helper()
	require.NoError(t, options.Validate())

	conf := sstable.DefaultConfig()
	conf.MinFilterKeys = options.MinFilterKeys
	conf.Compression = options.CompressionCodec
	tableStore := store.NewTableStore(bucket, conf, dbPath)
	manifestStore := store.NewManifestStore(dbPath, bucket)

	storedManifest, err := getStoredManifest(manifestStore)
	require.NoError(t, err)

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
	fenceable, err := store.InitFenceableManifestWriter(storedManifest)
	require.NoError(t, err)
	return db, fenceable
}

func rotateMemtable(db *DB, walID uint64, key string) {
	db.state.Memtable().Put(types.RowEntry{
		Key:   []byte(key),
		Value: types.ValueFromBytes([]byte(random.String("value-", 8))),
	})
	db.state.Memtable().SetLastWalID(walID)
	db.state.FreezeMemtable(walID)
}

func latestManifestID(t *testing.T, manifestStore *store.ManifestStore) uint64 {
	t.Helper()
	stored, err := store.LoadStoredManifest(manifestStore)
	require.NoError(t, err)
	sm, ok := stored.Get()
	require.True(t, ok)
	return sm.ID()
}

// Rotated memtables drain oldest first: their handles land in L0 newest
// first, one manifest version is written per flush, and both notifications
// fire for every memtable.
func TestFlushImmMemtablesFIFO(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	opts := testDBOptions(0, 1024)
	opts.L0MaxSSTs = 4
	db, manifest := newManualDB(t, bucket, "/tmp/test_kv_store", opts)

	rotateMemtable(db, 1, "a")
	rotateMemtable(db, 2, "b")
	rotateMemtable(db, 3, "c")
	rotated := db.state.ImmMemtablesList()
	require.Len(t, rotated, 3)

	versionBefore := latestManifestID(t, db.manifestStore)

	flusher := MemtableFlusher{db: db, manifest: manifest, log: db.opts.Log}
	require.NoError(t, flusher.flushImmMemtablesToL0())

	core := db.state.CoreStateSnapshot()
	require.Len(t, core.L0, 3)
	assert.Equal(t, []byte("c"), core.L0[0].Info.FirstKey)
	assert.Equal(t, []byte("b"), core.L0[1].Info.FirstKey)
	assert.Equal(t, []byte("a"), core.L0[2].Info.FirstKey)
	assert.Empty(t, db.state.ImmMemtablesList())

	assert.Equal(t, versionBefore+3, latestManifestID(t, db.manifestStore),
		"one manifest version per flushed memtable")

	// the L0 notification fires no later than durable for every memtable
	for _, imm := range rotated {
		require.NoError(t, imm.AwaitFlushToL0(context.Background()))
		assert.True(t, imm.Table().IsDurable())
	}

	// the stored manifest names all three SSTs
	stored, err := store.LoadStoredManifest(db.manifestStore)
	require.NoError(t, err)
	sm, _ := stored.Get()
	assert.Len(t, sm.DbState().L0, 3)
}

// When L0 is at capacity the flush makes no progress, returns no error, and
// leaves the queue intact.
func TestFlushBackpressureAtL0Cap(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	opts := testDBOptions(0, 1024)
	opts.L0MaxSSTs = 2
	db, manifest := newManualDB(t, bucket, "/tmp/test_kv_store", opts)

	rotateMemtable(db, 1, "a")
	rotateMemtable(db, 2, "b")
	rotateMemtable(db, 3, "c")

	flusher := MemtableFlusher{db: db, manifest: manifest, log: db.opts.Log}
	require.NoError(t, flusher.flushImmMemtablesToL0())

	core := db.state.CoreStateSnapshot()
	assert.Len(t, core.L0, 2)
	remaining := db.state.ImmMemtablesList()
	require.Len(t, remaining, 1)
	assert.Equal(t, uint64(3), remaining[0].LastWalID())
	assert.False(t, remaining[0].Table().IsDurable())

	// still no progress, still no error
	require.NoError(t, flusher.flushImmMemtablesToL0())
	assert.Len(t, db.state.CoreStateSnapshot().L0, 2)
}

// A manifest version conflict from a concurrent writer is retried: the
// flusher re-reads and re-writes, and both writers' changes survive.
func TestWriteManifestSafelyRetriesOnConflict(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"
	db, manifest := newManualDB(t, bucket, dbPath, testDBOptions(0, 1024))
	flusher := MemtableFlusher{db: db, manifest: manifest, log: db.opts.Log}

	// a compactor peer takes the next version behind our back, publishing
	// a new sorted run
	loaded, err := store.LoadStoredManifest(store.NewManifestStore(dbPath, bucket))
	require.NoError(t, err)
	peer, _ := loaded.Get()
	peerCore := peer.DbState().Clone()
	peerCore.Compacted = []state.SortedRun{{ID: 7, SSTList: []sstable.Handle{
		*sstable.NewHandle(sstable.NewIDCompacted(ulid.Make()), &sstable.Info{FirstKey: []byte("a")}),
	}}}
	require.NoError(t, peer.UpdateDBState(peerCore))

	// a direct write from the stale version loses the race
	err = flusher.writeManifest()
	assert.ErrorIs(t, err, common.ErrManifestVersionExists)

	// the safe path refreshes and succeeds; the final manifest carries the
	// peer's sorted run and our L0 entry
	rotateMemtable(db, 43, "a")
	require.NoError(t, flusher.flushImmMemtablesToL0())

	final, err := store.LoadStoredManifest(store.NewManifestStore(dbPath, bucket))
	require.NoError(t, err)
	sm, _ := final.Get()
	assert.Len(t, sm.DbState().L0, 1)
	require.Len(t, sm.DbState().Compacted, 1)
	assert.Equal(t, uint32(7), sm.DbState().Compacted[0].ID)
	assert.Equal(t, uint64(43), sm.DbState().LastCompactedWalSSTID.Load())
}

// A writer observing a newer epoch fails Fenced and refuses all further
// manifest writes.
func TestFlusherFencedByNewerWriter(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"
	db, manifest := newManualDB(t, bucket, dbPath, testDBOptions(0, 1024))
	flusher := MemtableFlusher{db: db, manifest: manifest, log: db.opts.Log}

	// a second process opens the DB and bumps the writer epoch
	_, manifestB := newManualDB(t, bucket, dbPath, testDBOptions(0, 1024))
	_ = manifestB

	err := flusher.loadManifest()
	assert.ErrorIs(t, err, common.ErrFenced)

	rotateMemtable(db, 1, "a")
	err = flusher.flushImmMemtablesToL0()
	assert.ErrorIs(t, err, common.ErrFenced)
}

// A displaced DB latches Fenced as its first fatal error and fails user
// operations fast from then on.
func TestFencedDBLatchesFatalError(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"

	db1, err := OpenWithOptions(context.Background(), dbPath, bucket, testDBOptions(0, 1024))
	require.NoError(t, err)

	db2, err := OpenWithOptions(context.Background(), dbPath, bucket, testDBOptions(0, 1024))
	require.NoError(t, err)
	defer db2.Close()

	require.Eventually(t, func() bool {
		return db1.state.Error() != nil
	}, 10*time.Second, 10*time.Millisecond, "the displaced writer must latch an error on its next manifest poll")
	assert.ErrorIs(t, db1.state.Error(), common.ErrFenced)

	err = db1.PutWithOptions([]byte("foo"), []byte("bar"), config.WriteOptions{AwaitDurable: false})
	assert.ErrorIs(t, err, common.ErrFenced)

	db1.Close()
}

// Shutdown drains queued flush commands: every reply channel fires and the
// final manifest reflects every flush that happened during the drain.
func TestShutdownDrainsQueuedCommands(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"
	db, err := OpenWithOptions(context.Background(), dbPath, bucket, testDBOptions(0, 1024))
	require.NoError(t, err)

	rotateMemtable(db, 1, "a")
	rotateMemtable(db, 2, "b")

	resp1 := make(chan error, 1)
	resp2 := make(chan error, 1)
	db.memtableFlushQueue.Send(MemtableFlushMsg{Resp: resp1, Msg: FlushImmutableMemtables})
	db.memtableFlushQueue.Send(MemtableFlushMsg{Resp: resp2, Msg: FlushImmutableMemtables})

	require.NoError(t, db.Close())

	select {
	case err := <-resp1:
		assert.NoError(t, err)
	default:
		t.Fatal("first flush command was not answered before shutdown")
	}
	select {
	case err := <-resp2:
		assert.NoError(t, err)
	default:
		t.Fatal("second flush command was not answered before shutdown")
	}

	stored, err := store.LoadStoredManifest(store.NewManifestStore(dbPath, bucket))
	require.NoError(t, err)
	sm, _ := stored.Get()
	assert.Len(t, sm.DbState().L0, 2)
}

// A crash between SST upload and manifest publish leaves an orphan object
// that recovery ignores.
func TestOrphanSSTIgnoredOnRecovery(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"
	db, _ := newManualDB(t, bucket, dbPath, testDBOptions(0, 1024))

	rotateMemtable(db, 1, "orphan")
	imm, ok := db.state.OldestImmMemtable().Get()
	require.True(t, ok)

	// upload the SST, then "crash" before the manifest write
	ctx := context.Background()
	id := sstable.NewIDCompacted(ulid.Make())
	_, err := db.flushImmTable(ctx, id, imm.Iter())
	require.NoError(t, err)

	orphans := 0
	require.NoError(t, bucket.Iter(ctx, dbPath+"/compacted", func(string) error {
		orphans++
		return nil
	}))
	assert.Equal(t, 1, orphans, "the orphan object exists in the store")

	// recovery sees the previous manifest only
	recovered, err := OpenWithOptions(ctx, dbPath, bucket, testDBOptions(0, 1024))
	require.NoError(t, err)
	defer recovered.Close()

	assert.Empty(t, recovered.state.CoreStateSnapshot().L0)
	_, err = recovered.Get(ctx, []byte("orphan"))
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
}

// The tick branch stops doing work after Shutdown while buffered commands
// still drain.
func TestTickRefusesWorkAfterShutdown(t *testing.T) {
	bucket := objstore.NewInMemBucket()
	dbPath := "/tmp/test_kv_store"
	db, err := OpenWithOptions(context.Background(), dbPath, bucket, testDBOptions(0, 1024))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// after Close returns the task has exited; a rotated memtable must stay
	// queued because no ticks run anymore
	rotateMemtable(db, 1, "late")
	time.Sleep(3 * db.opts.ManifestPollInterval)
	assert.Len(t, db.state.ImmMemtablesList(), 1)
}
