package table

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basaltdb/basalt-go/internal/types"
)

func TestWALPutGetDelete(t *testing.T) {
	wal := NewWAL()
	wal.Put([]byte("key1"), []byte("value1"))

	val, ok := wal.Get([]byte("key1")).Get()
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), val.Value)

	wal.Delete([]byte("key1"))
	val, ok = wal.Get([]byte("key1")).Get()
	assert.True(t, ok)
	assert.True(t, val.IsTombstone())

	assert.True(t, wal.Get([]byte("key2")).IsAbsent())
}

func TestWALIterOrder(t *testing.T) {
	wal := NewWAL()
	wal.Put([]byte("ccc"), []byte("3"))
	wal.Put([]byte("aaa"), []byte("1"))
	wal.Put([]byte("bbb"), []byte("2"))

	iter := wal.Iter()
	for _, expected := range []string{"aaa", "bbb", "ccc"} {
		next, err := iter.Next()
		require.NoError(t, err)
		kv, ok := next.Get()
		assert.True(t, ok)
		assert.Equal(t, []byte(expected), kv.Key)
	}
	next, err := iter.Next()
	require.NoError(t, err)
	assert.True(t, next.IsAbsent())
}

func TestWALIterSeesInsertsAhead(t *testing.T) {
	wal := NewWAL()
	wal.Put([]byte("abc1111"), []byte("value1111"))

	iter := wal.Iter()
	next, err := iter.Next()
	require.NoError(t, err)
	kv, _ := next.Get()
	assert.Equal(t, []byte("abc1111"), kv.Key)

	wal.Put([]byte("abc2222"), []byte("value2222"))
	next, err = iter.Next()
	require.NoError(t, err)
	kv, _ = next.Get()
	assert.Equal(t, []byte("abc2222"), kv.Key)
}

func TestWALReplaceSealsTable(t *testing.T) {
	wal := NewWAL()
	wal.Put([]byte("key1"), []byte("value1"))

	sealed := wal.Replace()
	assert.True(t, wal.IsEmpty())
	assert.Equal(t, int64(0), wal.Size())

	immWal := NewImmutableWAL(1, sealed)
	assert.Equal(t, uint64(1), immWal.ID())
	val, ok := immWal.Get([]byte("key1")).Get()
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), val.Value)
}

func TestMemtableLastWalID(t *testing.T) {
	memtable := NewMemtable()
	assert.True(t, memtable.LastWalID().IsAbsent())

	memtable.SetLastWalID(3)
	id, ok := memtable.LastWalID().Get()
	assert.True(t, ok)
	assert.Equal(t, uint64(3), id)
}

func TestMemtableSize(t *testing.T) {
	memtable := NewMemtable()
	memtable.Put(types.RowEntry{Key: []byte("key1"), Value: types.ValueFromBytes([]byte("value1"))})
	assert.Equal(t, int64(10), memtable.Size())
	assert.False(t, memtable.IsEmpty())
}

func TestDurableNotificationOneShot(t *testing.T) {
	table := newKVTable()
	assert.False(t, table.IsDurable())

	table.NotifyDurable()
	table.NotifyDurable() // second call is a no-op
	assert.True(t, table.IsDurable())
	require.NoError(t, table.AwaitDurable(context.Background()))
}

func TestAwaitDurableHonorsContext(t *testing.T) {
	table := newKVTable()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, table.AwaitDurable(ctx))
}

func TestImmutableMemtableFlushNotification(t *testing.T) {
	memtable := NewMemtable()
	memtable.Put(types.RowEntry{Key: []byte("key1"), Value: types.ValueFromBytes([]byte("value1"))})

	imm := NewImmutableMemtable(memtable, 7)
	assert.Equal(t, uint64(7), imm.LastWalID())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	assert.Error(t, imm.AwaitFlushToL0(ctx))
	cancel()

	imm.NotifyFlushToL0()
	require.NoError(t, imm.AwaitFlushToL0(context.Background()))

	val, ok := imm.Get([]byte("key1")).Get()
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), val.Value)
}
