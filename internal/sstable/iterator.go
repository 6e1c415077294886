package sstable

import (
	"bytes"
	"context"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/internal/sstable/block"
	"github.com/basaltdb/basalt-go/internal/types"
)

// BlockSource is the slice of the table store the iterator needs. The
// concrete implementation lives in basalt/store.
type BlockSource interface {
	ReadIndex(handle *Handle) (*Index, error)
	ReadBlocksUsingIndex(handle *Handle, rng common.Range, index *Index) ([]block.Block, error)
}

// Iterator walks the rows of one SST in key order, fetching blocks from the
// object store as it advances.
type Iterator struct {
	handle       *Handle
	store        BlockSource
	index        *Index
	nextBlockIdx int
	fromKey      mo.Option[[]byte]
	currentIter  mo.Option[*block.Iterator]
	warn         types.ErrWarn
}

func NewIterator(handle *Handle, store BlockSource) (*Iterator, error) {
	index, err := store.ReadIndex(handle)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		handle:  handle,
		store:   store,
		index:   index,
		fromKey: mo.None[[]byte](),
	}, nil
}

// NewIteratorAtKey positions the iterator at the first row with key >= key.
func NewIteratorAtKey(handle *Handle, key []byte, store BlockSource) (*Iterator, error) {
	index, err := store.ReadIndex(handle)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		handle:       handle,
		store:        store,
		index:        index,
		nextBlockIdx: blockIdxForKey(index, key),
		fromKey:      mo.Some(key),
	}, nil
}

// blockIdxForKey finds the last block whose first key is <= key; rows below
// that block's range cannot contain the key.
func blockIdxForKey(index *Index, key []byte) int {
	idx := 0
	for i := 0; i < index.BlockMetaLength(); i++ {
		_, firstKey := index.BlockMeta(i)
		if bytes.Compare(firstKey, key) > 0 {
			break
		}
		idx = i
	}
	return idx
}

func (iter *Iterator) Next(ctx context.Context) (types.KeyValue, bool) {
	for {
		entry, ok := iter.NextEntry(ctx)
		if !ok {
			return types.KeyValue{}, false
		}
		if entry.Value.IsTombstone() {
			continue
		}
		return types.KeyValue{Key: entry.Key, Value: entry.Value.Value}, true
	}
}

func (iter *Iterator) NextEntry(ctx context.Context) (types.RowEntry, bool) {
	for {
		if ctx.Err() != nil {
			iter.warn.Add("context done during iteration: %s", ctx.Err().Error())
			return types.RowEntry{}, false
		}

		blockIter, ok := iter.currentIter.Get()
		if !ok {
			blockIter, ok = iter.nextBlockIter()
			if !ok {
				return types.RowEntry{}, false
			}
			iter.currentIter = mo.Some(blockIter)
		}

		entry, ok := blockIter.NextEntry()
		if ok {
			return entry, true
		}
		iter.currentIter = mo.None[*block.Iterator]()
	}
}

func (iter *Iterator) nextBlockIter() (*block.Iterator, bool) {
	if iter.nextBlockIdx >= iter.index.BlockMetaLength() {
		return nil, false
	}

	rng := common.Range{Start: uint64(iter.nextBlockIdx), End: uint64(iter.nextBlockIdx + 1)}
	blocks, err := iter.store.ReadBlocksUsingIndex(iter.handle, rng, iter.index)
	if err != nil {
		iter.warn.Add("while reading block %d of %s: %s", iter.nextBlockIdx, iter.handle.Id.Value, err.Error())
		return nil, false
	}
	if len(blocks) == 0 {
		return nil, false
	}

	blk := blocks[0]
	var blockIter *block.Iterator
	if key, ok := iter.fromKey.Get(); ok {
		blockIter = block.NewIteratorAtKey(&blk, key)
		iter.fromKey = mo.None[[]byte]()
	} else {
		blockIter = block.NewIterator(&blk)
	}
	iter.nextBlockIdx++
	return blockIter, true
}

// Warnings returns warnings accumulated during iteration, if any.
func (iter *Iterator) Warnings() *types.ErrWarn {
	if iter.warn.Empty() {
		return nil
	}
	return &iter.warn
}
