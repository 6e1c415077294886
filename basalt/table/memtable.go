package table

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/internal/types"
)

// ------------------------------------------------
// Memtable
// ------------------------------------------------

type Memtable struct {
	sync.RWMutex
	table     *KVTable
	lastWalID mo.Option[uint64]
}

func NewMemtable() *Memtable {
	return &Memtable{
		table:     newKVTable(),
		lastWalID: mo.None[uint64](),
	}
}

func (m *Memtable) Put(entry types.RowEntry) {
	m.Lock()
	defer m.Unlock()
	m.table.put(entry)
}

func (m *Memtable) Get(key []byte) mo.Option[types.Value] {
	m.RLock()
	defer m.RUnlock()
	return m.table.get(key)
}

func (m *Memtable) Size() int64 {
	m.RLock()
	defer m.RUnlock()
	return m.table.size.Load()
}

func (m *Memtable) IsEmpty() bool {
	m.RLock()
	defer m.RUnlock()
	return m.table.isEmpty()
}

// SetLastWalID records the id of the most recent WAL applied to this
// memtable, so a freeze knows which WAL SSTs it covers.
func (m *Memtable) SetLastWalID(id uint64) {
	m.Lock()
	defer m.Unlock()
	m.lastWalID = mo.Some(id)
}

func (m *Memtable) LastWalID() mo.Option[uint64] {
	m.RLock()
	defer m.RUnlock()
	return m.lastWalID
}

func (m *Memtable) Table() *KVTable {
	m.RLock()
	defer m.RUnlock()
	return m.table
}

func (m *Memtable) Iter() *KVTableIterator {
	m.RLock()
	defer m.RUnlock()
	return m.table.iter()
}

// ------------------------------------------------
// ImmutableMemtable
// ------------------------------------------------

// ImmutableMemtable is a sealed memtable awaiting flush to L0. It carries a
// one-shot flushed-to-L0 notification; the underlying table's durable
// notification fires separately once the manifest naming the SST is
// persisted.
type ImmutableMemtable struct {
	lastWalID uint64
	table     *KVTable

	flushedOnce sync.Once
	flushedCh   chan struct{}
}

func NewImmutableMemtable(memtable *Memtable, lastWalID uint64) *ImmutableMemtable {
	return &ImmutableMemtable{
		table:     memtable.table,
		lastWalID: lastWalID,
		flushedCh: make(chan struct{}),
	}
}

func (im *ImmutableMemtable) Get(key []byte) mo.Option[types.Value] {
	return im.table.get(key)
}

func (im *ImmutableMemtable) LastWalID() uint64 {
	return im.lastWalID
}

func (im *ImmutableMemtable) Table() *KVTable {
	return im.table
}

func (im *ImmutableMemtable) Iter() *KVTableIterator {
	return im.table.iter()
}

// NotifyFlushToL0 resolves the flushed-to-L0 one-shot. The SST is visible to
// reads from the catalog once this fires; durability comes later.
func (im *ImmutableMemtable) NotifyFlushToL0() {
	im.flushedOnce.Do(func() {
		close(im.flushedCh)
	})
}

func (im *ImmutableMemtable) AwaitFlushToL0(ctx context.Context) error {
	select {
	case <-im.flushedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
