package basalt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/oklog/ulid/v2"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/store"
	"github.com/basaltdb/basalt-go/basalt/table"
	"github.com/basaltdb/basalt-go/internal"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

func (db *DB) spawnWALFlushTask(walFlushNotifierCh <-chan context.Context, walFlushTaskWG *sync.WaitGroup) {
	walFlushTaskWG.Add(1)
	go func() {
		defer walFlushTaskWG.Done()
		ticker := time.NewTicker(db.opts.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), db.opts.FlushInterval)
				if err := db.FlushWAL(ctx); err != nil {
					db.opts.Log.Warn("Flush WAL failed", "error", err)
				}
				cancel()
			case ctx := <-walFlushNotifierCh:
				if err := db.FlushWAL(ctx); err != nil {
					db.opts.Log.Warn("Flush WAL failed", "error", err)
				}
				return
			}
		}
	}()
}

// FlushWAL
// 1. Convert mutable WAL to Immutable WAL
// 2. Flush each Immutable WAL to object store and then to memtable
func (db *DB) FlushWAL(ctx context.Context) error {
	db.walFlushMu.Lock()
	defer db.walFlushMu.Unlock()
	db.state.FreezeWAL()
	return db.flushImmWALs(ctx)
}

// For each Immutable WAL, oldest first:
// flush it to the object store, apply it to the mutable memtable, freeze the
// memtable if it crossed the L0 SST size, then release clients awaiting
// durability of that WAL.
func (db *DB) flushImmWALs(ctx context.Context) error {
	for {
		oldestWal := db.state.OldestImmWAL()
		immWal, ok := oldestWal.Get()
		if !ok {
			break
		}

		// Flush Immutable WAL to object store
		_, err := db.flushImmWAL(ctx, immWal)
		if err != nil {
			return err
		}
		db.state.PopImmWAL()

		// flush to the memtable before notifying so that data is available for reads
		db.flushImmWALToMemtable(immWal, db.state.Memtable())
		db.maybeFreezeMemtable(immWal.ID())
		immWal.Table().NotifyDurable()
		db.stats.WalFlushes.Inc()
	}
	return nil
}

func (db *DB) flushImmWAL(ctx context.Context, immWAL *table.ImmutableWAL) (*sstable.Handle, error) {
	walID := sstable.NewIDWal(immWAL.ID())
	return db.flushImmTable(ctx, walID, immWAL.Iter())
}

func (db *DB) flushImmWALToMemtable(immWal *table.ImmutableWAL, memtable *table.Memtable) {
	iter := immWal.Iter()
	for {
		entry, err := iter.NextEntry()
		if err != nil || entry.IsAbsent() {
			break
		}
		e, _ := entry.Get()
		memtable.Put(e)
	}
	memtable.SetLastWalID(immWal.ID())
}

func (db *DB) flushImmTable(ctx context.Context, id sstable.ID, iter *table.KVTableIterator) (*sstable.Handle, error) {
	sstBuilder := db.tableStore.TableBuilder()
	for {
		entry, err := iter.NextEntry()
		if err != nil || entry.IsAbsent() {
			break
		}
		kv, _ := entry.Get()
		var val []byte
		if !kv.Value.IsTombstone() {
			val = kv.Value.Value
		}
		err = sstBuilder.AddValue(kv.Key, val)
		if err != nil {
			return nil, err
		}
	}

	encodedSST, err := sstBuilder.Build()
	if err != nil {
		return nil, err
	}

	sst, err := db.tableStore.WriteSST(ctx, id, encodedSST)
	if err != nil {
		return nil, err
	}

	return sst, nil
}

// ------------------------------------------------
// MemtableFlusher
// ------------------------------------------------

// memtableFlushQueue is the unbounded, single-consumer command queue feeding
// the memtable flush task. Sends never block the producer; the consumer is
// woken through a coalescing signal channel and drains the deque on each
// wake.
type memtableFlushQueue struct {
	mu     sync.Mutex
	msgs   *deque.Deque[MemtableFlushMsg]
	signal chan struct{}
}

func newMemtableFlushQueue() *memtableFlushQueue {
	return &memtableFlushQueue{
		msgs:   deque.New[MemtableFlushMsg](),
		signal: make(chan struct{}, 1),
	}
}

func (q *memtableFlushQueue) Send(msg MemtableFlushMsg) {
	q.mu.Lock()
	q.msgs.PushBack(msg)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *memtableFlushQueue) TryRecv() (MemtableFlushMsg, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.msgs.Len() == 0 {
		return MemtableFlushMsg{}, false
	}
	return q.msgs.PopFront(), true
}

func (q *memtableFlushQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.msgs.Len()
}

// spawnMemtableFlushTask starts the single task that owns the fenceable
// manifest. It runs until Shutdown has been received and every queued
// command has been drained, then publishes a final manifest so the stored
// catalog reflects everything flushed during the drain.
func (db *DB) spawnMemtableFlushTask(
	manifest *store.FenceableManifest,
	memtableFlushQueue *memtableFlushQueue,
	memtableFlushTaskWG *sync.WaitGroup,
) {
	memtableFlushTaskWG.Add(1)
	isShutdown := false
	go func() {
		defer memtableFlushTaskWG.Done()
		flusher := MemtableFlusher{
			db:       db,
			manifest: manifest,
			log:      db.opts.Log,
		}
		ticker := time.NewTicker(db.opts.ManifestPollInterval)
		defer ticker.Stop()

		// Stop the loop when the shut down has been received and all
		// remaining queued commands are drained.
		for !(isShutdown && memtableFlushQueue.Len() == 0) {
			select {
			case <-ticker.C:
				if isShutdown {
					continue
				}
				if err := flusher.loadManifest(); err != nil {
					db.opts.Log.Error("error loading manifest", "error", err)
					db.state.SetErrorIfNone(err)
				}
				if err := flusher.flushImmMemtablesToL0(); err != nil {
					db.opts.Log.Error("error from memtable flush", "error", err)
					db.state.SetErrorIfNone(err)
				} else {
					db.stats.ImmutableMemtableFlushes.Inc()
				}
			case <-memtableFlushQueue.signal:
				for {
					msg, ok := memtableFlushQueue.TryRecv()
					if !ok {
						break
					}
					switch msg.Msg {
					case Shutdown:
						// Do not break out: remaining commands are drained
						// before the loop condition is consulted again.
						isShutdown = true
					case FlushImmutableMemtables:
						err := flusher.flushImmMemtablesToL0()
						if err != nil {
							db.opts.Log.Error("error from memtable flush", "error", err)
							db.state.SetErrorIfNone(err)
						} else {
							db.stats.ImmutableMemtableFlushes.Inc()
						}
						if msg.Resp != nil {
							select {
							case msg.Resp <- err:
							default:
								db.opts.Log.Error("error sending flush response")
								db.state.SetErrorIfNone(common.ErrMemtableFlushChannel)
							}
						}
					}
				}
			}
		}

		if err := flusher.writeManifestSafely(); err != nil {
			db.opts.Log.Error("error writing manifest on shutdown", "error", err)
		}
	}()
}

type MemtableFlushThreadMsg int

const (
	Shutdown MemtableFlushThreadMsg = iota + 1
	FlushImmutableMemtables
)

// MemtableFlushMsg is one command to the flush task. Resp, when non-nil,
// receives the result of the flush; it must be buffered.
type MemtableFlushMsg struct {
	Resp chan error
	Msg  MemtableFlushThreadMsg
}

type MemtableFlusher struct {
	db       *DB
	manifest *store.FenceableManifest
	log      *slog.Logger
}

func (m *MemtableFlusher) loadManifest() error {
	currentManifest, err := m.manifest.Refresh()
	if err != nil {
		return err
	}
	m.db.state.RefreshDBState(currentManifest)
	return nil
}

func (m *MemtableFlusher) writeManifest() error {
	core := m.db.state.CoreStateSnapshot()
	return m.manifest.UpdateDBState(core)
}

// writeManifestSafely publishes the current core, re-reading the manifest
// before every attempt so a compactor's concurrent changes are carried
// along. A lost version race is the only retried error.
func (m *MemtableFlusher) writeManifestSafely() error {
	for {
		if err := m.loadManifest(); err != nil {
			return err
		}

		err := m.writeManifest()
		if errors.Is(err, internal.ErrAlreadyExists) {
			m.log.Warn("conflicting manifest version. retry write", "error", err)
			m.db.stats.ManifestWriteConflicts.Inc()
			continue
		}
		return err
	}
}

// flushImmMemtablesToL0 drains the immutable memtable queue, oldest first,
// until the queue is empty or L0 is full. Per memtable: write the SST, swap
// it into the catalog, notify flushed-to-L0, persist the manifest, notify
// durable. The notification order is load-bearing: reads may see the SST
// after the L0 notification, but durability is only promised once the
// manifest naming it is stored.
func (m *MemtableFlusher) flushImmMemtablesToL0() error {
	for {
		imm, l0Count := m.db.state.NextImmMemtableForFlush(m.db.opts.L0MaxSSTs)
		immMemtable, ok := imm.Get()
		if !ok {
			if l0Count >= m.db.opts.L0MaxSSTs {
				m.log.Warn("too many L0 files, won't flush imm memtables to L0",
					"l0", l0Count, "l0_max_ssts", m.db.opts.L0MaxSSTs)
				m.db.state.LogDBRuns(m.log)
			}
			return nil
		}

		id := sstable.NewIDCompacted(ulid.Make())
		ctx, cancel := context.WithTimeout(context.Background(), m.db.opts.FlushInterval)
		sstHandle, err := m.db.flushImmTable(ctx, id, immMemtable.Iter())
		cancel()
		if err != nil {
			// The memtable stays at the back of the queue and is retried
			// on the next invocation.
			return err
		}

		m.db.state.MoveImmMemtableToL0(immMemtable, sstHandle)
		immMemtable.NotifyFlushToL0()
		if err := m.writeManifestSafely(); err != nil {
			return err
		}
		immMemtable.Table().NotifyDurable()
	}
}
