package compaction

import (
	"context"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/basalt/store"
	"github.com/basaltdb/basalt-go/internal/sstable"
	"github.com/basaltdb/basalt-go/internal/types"
)

// ------------------------------------------------
// SortedRunIterator
// ------------------------------------------------

type SortedRunIterator struct {
	currentKVIter mo.Option[*sstable.Iterator]
	sstListIter   *SSTListIterator
	tableStore    *store.TableStore
	warn          types.ErrWarn
}

func NewSortedRunIterator(sr state.SortedRun, store *store.TableStore) (*SortedRunIterator, error) {
	return newSortedRunIter(sr.SSTList, store, mo.None[[]byte]())
}

func NewSortedRunIteratorFromKey(sr state.SortedRun, key []byte, store *store.TableStore) (*SortedRunIterator, error) {
	return newSortedRunIter(sr.SstsFromKey(key), store, mo.Some(key))
}

func newSortedRunIter(sstList []sstable.Handle, store *store.TableStore, fromKey mo.Option[[]byte]) (*SortedRunIterator, error) {

	sstListIter := newSSTListIterator(sstList)
	currentKVIter := mo.None[*sstable.Iterator]()
	sst, ok := sstListIter.Next()
	if ok {
		var iter *sstable.Iterator
		var err error
		if fromKey.IsPresent() {
			key, _ := fromKey.Get()
			iter, err = sstable.NewIteratorAtKey(&sst, key, store)
			if err != nil {
				return nil, err
			}
		} else {
			iter, err = sstable.NewIterator(&sst, store)
			if err != nil {
				return nil, err
			}
		}

		currentKVIter = mo.Some(iter)
	}

	return &SortedRunIterator{
		currentKVIter: currentKVIter,
		sstListIter:   sstListIter,
		tableStore:    store,
	}, nil
}

func (iter *SortedRunIterator) Next(ctx context.Context) (types.KeyValue, bool) {
	for {
		keyVal, ok := iter.NextEntry(ctx)
		if !ok {
			return types.KeyValue{}, false
		}
		if keyVal.Value.IsTombstone() {
			continue
		}

		return types.KeyValue{
			Key:   keyVal.Key,
			Value: keyVal.Value.Value,
		}, true
	}
}

func (iter *SortedRunIterator) NextEntry(ctx context.Context) (types.RowEntry, bool) {
	for {
		if iter.currentKVIter.IsAbsent() {
			return types.RowEntry{}, false
		}

		kvIter, _ := iter.currentKVIter.Get()
		kv, ok := kvIter.NextEntry(ctx)
		if ok {
			return kv, true
		} else {
			if warn := kvIter.Warnings(); warn != nil {
				iter.warn.Merge(warn)
			}
		}

		sst, ok := iter.sstListIter.Next()
		if !ok {
			return types.RowEntry{}, false
		}

		newKVIter, err := sstable.NewIterator(&sst, iter.tableStore)
		if err != nil {
			iter.warn.Add("while creating SSTable iterator: %s", err.Error())
			return types.RowEntry{}, false
		}

		iter.currentKVIter = mo.Some(newKVIter)
	}
}

// Warnings returns the warnings accumulated during iteration. The result is
// never nil; it is empty when there were no warnings.
func (iter *SortedRunIterator) Warnings() *types.ErrWarn {
	return &iter.warn
}

// ------------------------------------------------
// SSTListIterator
// ------------------------------------------------

type SSTListIterator struct {
	sstList []sstable.Handle
	current int
}

func newSSTListIterator(sstList []sstable.Handle) *SSTListIterator {
	return &SSTListIterator{sstList, 0}
}

func (iter *SSTListIterator) Next() (sstable.Handle, bool) {
	if iter.current >= len(iter.sstList) {
		return sstable.Handle{}, false
	}
	sst := iter.sstList[iter.current]
	iter.current++
	return sst, true
}
