package basalt

import (
	"bytes"
	"context"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/compaction"
	"github.com/basaltdb/basalt-go/basalt/config"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/sstable"
	"github.com/basaltdb/basalt-go/internal/types"
)

func (db *DB) Get(ctx context.Context, key []byte) ([]byte, error) {
	return db.GetWithOptions(ctx, key, config.ReadOptions{ReadLevel: config.Committed})
}

// GetWithOptions searches newest data first: WAL and immutable WALs (only at
// the Uncommitted read level), then memtable, immutable memtables, L0, and
// finally the sorted runs. The first hit wins; a tombstone hit reports the
// key as absent.
func (db *DB) GetWithOptions(ctx context.Context, key []byte, options config.ReadOptions) ([]byte, error) {
	assert.True(len(key) > 0, "key cannot be empty")
	if err := db.state.Error(); err != nil {
		return nil, err
	}

	if options.ReadLevel == config.Uncommitted {
		if val, ok := db.state.WAL().Get(key).Get(); ok {
			return checkValue(val)
		}
		for _, immWal := range db.state.ImmWALsList() {
			if val, ok := immWal.Get(key).Get(); ok {
				return checkValue(val)
			}
		}
	}

	if val, ok := db.state.Memtable().Get(key).Get(); ok {
		return checkValue(val)
	}
	for _, immMemtable := range db.state.ImmMemtablesList() {
		if val, ok := immMemtable.Get(key).Get(); ok {
			return checkValue(val)
		}
	}

	core := db.state.CoreStateSnapshot()
	for i := range core.L0 {
		sst := core.L0[i]
		mayInclude, err := db.sstMayIncludeKey(&sst, key)
		if err != nil {
			return nil, err
		}
		if !mayInclude {
			continue
		}
		val, found, err := db.getFromSST(ctx, &sst, key)
		if err != nil {
			return nil, err
		}
		if found {
			return checkValue(val)
		}
	}

	for i := range core.Compacted {
		sst, ok := core.Compacted[i].SstWithKey(key).Get()
		if !ok {
			continue
		}
		mayInclude, err := db.sstMayIncludeKey(&sst, key)
		if err != nil {
			return nil, err
		}
		if !mayInclude {
			continue
		}
		val, found, err := db.getFromSortedRun(ctx, core.Compacted[i], key)
		if err != nil {
			return nil, err
		}
		if found {
			return checkValue(val)
		}
	}

	return nil, common.ErrKeyNotFound
}

func (db *DB) getFromSortedRun(ctx context.Context, run state.SortedRun, key []byte) (types.Value, bool, error) {
	iter, err := compaction.NewSortedRunIteratorFromKey(run, key, db.tableStore)
	if err != nil {
		return types.Value{}, false, err
	}

	entry, ok := iter.NextEntry(ctx)
	if !ok {
		if err := iter.Warnings().If(); err != nil {
			return types.Value{}, false, err
		}
		return types.Value{}, false, nil
	}
	if bytes.Equal(entry.Key, key) {
		return entry.Value, true, nil
	}
	return types.Value{}, false, nil
}

func (db *DB) sstMayIncludeKey(sst *sstable.Handle, key []byte) (bool, error) {
	filter, err := db.tableStore.ReadFilter(sst)
	if err != nil {
		return false, err
	}
	if f, ok := filter.Get(); ok {
		return f.HasKey(key), nil
	}
	return true, nil
}

func (db *DB) getFromSST(ctx context.Context, sst *sstable.Handle, key []byte) (types.Value, bool, error) {
	iter, err := sstable.NewIteratorAtKey(sst, key, db.tableStore)
	if err != nil {
		return types.Value{}, false, err
	}

	entry, ok := iter.NextEntry(ctx)
	if !ok {
		if warn := iter.Warnings(); warn != nil {
			return types.Value{}, false, warn.If()
		}
		return types.Value{}, false, nil
	}
	if bytes.Equal(entry.Key, key) {
		return entry.Value, true, nil
	}
	return types.Value{}, false, nil
}

func checkValue(val types.Value) ([]byte, error) {
	if val.IsTombstone() {
		return nil, common.ErrKeyNotFound
	}
	return val.Value, nil
}
