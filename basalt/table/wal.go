package table

import (
	"sync"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/internal/types"
)

// ------------------------------------------------
// WAL
// ------------------------------------------------

type WAL struct {
	sync.RWMutex
	table *KVTable
}

func NewWAL() *WAL {
	return &WAL{
		table: newKVTable(),
	}
}

func (w *WAL) Put(key []byte, value []byte) {
	w.Lock()
	defer w.Unlock()
	w.table.put(types.RowEntry{Key: key, Value: types.ValueFromBytes(value)})
}

func (w *WAL) Get(key []byte) mo.Option[types.Value] {
	w.RLock()
	defer w.RUnlock()
	return w.table.get(key)
}

func (w *WAL) Delete(key []byte) {
	w.Lock()
	defer w.Unlock()
	w.table.delete(key)
}

func (w *WAL) IsEmpty() bool {
	w.RLock()
	defer w.RUnlock()
	return w.table.isEmpty()
}

func (w *WAL) Table() *KVTable {
	w.RLock()
	defer w.RUnlock()
	return w.table
}

func (w *WAL) Size() int64 {
	w.RLock()
	defer w.RUnlock()
	return w.table.size.Load()
}

func (w *WAL) Iter() *KVTableIterator {
	w.RLock()
	defer w.RUnlock()
	return w.table.iter()
}

// Replace swaps in a fresh table and returns the old one, sealing the
// previous contents for flushing.
func (w *WAL) Replace() *KVTable {
	w.Lock()
	defer w.Unlock()
	old := w.table
	w.table = newKVTable()
	return old
}

func (w *WAL) Clone() *WAL {
	w.RLock()
	defer w.RUnlock()
	return &WAL{
		table: w.table.clone(),
	}
}

// ------------------------------------------------
// ImmutableWAL
// ------------------------------------------------

type ImmutableWAL struct {
	sync.RWMutex
	id    uint64
	table *KVTable
}

func NewImmutableWAL(id uint64, table *KVTable) *ImmutableWAL {
	return &ImmutableWAL{
		id:    id,
		table: table,
	}
}

func (iw *ImmutableWAL) Get(key []byte) mo.Option[types.Value] {
	iw.RLock()
	defer iw.RUnlock()
	return iw.table.get(key)
}

func (iw *ImmutableWAL) ID() uint64 {
	iw.RLock()
	defer iw.RUnlock()
	return iw.id
}

func (iw *ImmutableWAL) Table() *KVTable {
	iw.RLock()
	defer iw.RUnlock()
	return iw.table
}

func (iw *ImmutableWAL) Iter() *KVTableIterator {
	return iw.table.iter()
}

func (iw *ImmutableWAL) Clone() *ImmutableWAL {
	iw.RLock()
	defer iw.RUnlock()
	return &ImmutableWAL{
		id:    iw.id,
		table: iw.table.clone(),
	}
}
