package table

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/huandu/skiplist"
	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/internal/types"
)

// KVTable is a sorted in-memory table. Deletes are stored as tombstones so
// they shadow older values in deeper levels. The table carries a one-shot
// durable notification that fires once its contents survive a crash (WAL SST
// uploaded, or L0 SST catalogued in the manifest).
type KVTable struct {
	sync.RWMutex
	skl  *skiplist.SkipList
	size atomic.Int64

	durableOnce sync.Once
	durableCh   chan struct{}
}

func newKVTable() *KVTable {
	return &KVTable{
		skl:       skiplist.New(skiplist.Bytes),
		durableCh: make(chan struct{}),
	}
}

func (t *KVTable) get(key []byte) mo.Option[types.Value] {
	t.RLock()
	defer t.RUnlock()
	elem := t.skl.Get(key)
	if elem == nil {
		return mo.None[types.Value]()
	}
	return mo.Some(elem.Value.(types.Value))
}

func (t *KVTable) put(entry types.RowEntry) {
	t.Lock()
	defer t.Unlock()
	t.size.Add(int64(len(entry.Key) + len(entry.Value.GetValue())))
	t.skl.Set(entry.Key, entry.Value)
}

func (t *KVTable) delete(key []byte) {
	t.Lock()
	defer t.Unlock()
	t.size.Add(int64(len(key)))
	t.skl.Set(key, types.Tombstone())
}

func (t *KVTable) isEmpty() bool {
	t.RLock()
	defer t.RUnlock()
	return t.skl.Len() == 0
}

func (t *KVTable) iter() *KVTableIterator {
	return &KVTableIterator{table: t}
}

func (t *KVTable) clone() *KVTable {
	t.RLock()
	defer t.RUnlock()
	cloned := newKVTable()
	for elem := t.skl.Front(); elem != nil; elem = elem.Next() {
		cloned.put(types.RowEntry{
			Key:   elem.Key().([]byte),
			Value: elem.Value.(types.Value),
		})
	}
	return cloned
}

// NotifyDurable resolves the durable one-shot. Safe to call more than once;
// only the first call has an effect.
func (t *KVTable) NotifyDurable() {
	t.durableOnce.Do(func() {
		close(t.durableCh)
	})
}

// AwaitDurable blocks until the table's contents are durable or the context
// is done.
func (t *KVTable) AwaitDurable(ctx context.Context) error {
	select {
	case <-t.durableCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsDurable reports whether the durable one-shot has fired. Polling is
// idempotent.
func (t *KVTable) IsDurable() bool {
	select {
	case <-t.durableCh:
		return true
	default:
		return false
	}
}

// ------------------------------------------------
// KVTableIterator
// ------------------------------------------------

// KVTableIterator walks the table in key order. It tracks its position by
// element, so rows inserted behind the cursor during iteration are skipped
// and rows ahead of it are seen.
type KVTableIterator struct {
	table   *KVTable
	current *skiplist.Element
	started bool
}

func (iter *KVTableIterator) NextEntry() (mo.Option[types.RowEntry], error) {
	iter.table.RLock()
	defer iter.table.RUnlock()

	if !iter.started {
		iter.current = iter.table.skl.Front()
		iter.started = true
	} else if iter.current != nil {
		iter.current = iter.current.Next()
	}

	if iter.current == nil {
		return mo.None[types.RowEntry](), nil
	}
	return mo.Some(types.RowEntry{
		Key:   iter.current.Key().([]byte),
		Value: iter.current.Value.(types.Value),
	}), nil
}

func (iter *KVTableIterator) Next() (mo.Option[types.KeyValue], error) {
	for {
		entry, err := iter.NextEntry()
		if err != nil {
			return mo.None[types.KeyValue](), err
		}
		kv, ok := entry.Get()
		if !ok {
			return mo.None[types.KeyValue](), nil
		}
		if kv.Value.IsTombstone() {
			continue
		}
		return mo.Some(types.KeyValue{Key: kv.Key, Value: kv.Value.Value}), nil
	}
}
