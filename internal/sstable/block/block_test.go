package block

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basaltdb/basalt-go/internal/types"
)

func TestBlockBuildEncodeDecode(t *testing.T) {
	builder := NewBuilder(4096)
	assert.True(t, builder.Add([]byte("key1"), mo.Some([]byte("value1"))))
	assert.True(t, builder.Add([]byte("key2"), mo.Some([]byte("value2"))))

	blk, err := builder.Build()
	require.NoError(t, err)

	encoded := blk.Encode()
	var decoded Block
	require.NoError(t, Decode(&decoded, encoded))
	assert.Equal(t, blk.Data, decoded.Data)
	assert.Equal(t, blk.Offsets, decoded.Offsets)
}

func TestBlockRejectsRowWhenFull(t *testing.T) {
	builder := NewBuilder(32)
	assert.True(t, builder.Add([]byte("key1"), mo.Some([]byte("value1"))))
	assert.False(t, builder.Add([]byte("key2"), mo.Some([]byte("value2"))))
}

func TestBlockFirstRowAlwaysAccepted(t *testing.T) {
	builder := NewBuilder(8)
	assert.True(t, builder.Add([]byte("averylongkey"), mo.Some([]byte("averylongvalue"))))
}

func TestEmptyBlock(t *testing.T) {
	builder := NewBuilder(4096)
	_, err := builder.Build()
	assert.Error(t, err)
}

func TestBlockIterator(t *testing.T) {
	builder := NewBuilder(4096)
	builder.Add([]byte("key1"), mo.Some([]byte("value1")))
	builder.Add([]byte("key2"), mo.None[[]byte]())
	builder.Add([]byte("key3"), mo.Some([]byte("value3")))

	blk, err := builder.Build()
	require.NoError(t, err)

	iter := NewIterator(blk)
	entry, ok := iter.NextEntry()
	assert.True(t, ok)
	assert.Equal(t, []byte("key1"), entry.Key)
	assert.Equal(t, []byte("value1"), entry.Value.Value)

	entry, ok = iter.NextEntry()
	assert.True(t, ok)
	assert.Equal(t, []byte("key2"), entry.Key)
	assert.True(t, entry.Value.IsTombstone())

	entry, ok = iter.NextEntry()
	assert.True(t, ok)
	assert.Equal(t, []byte("key3"), entry.Key)

	_, ok = iter.NextEntry()
	assert.False(t, ok)
}

func TestBlockIteratorSkipsTombstones(t *testing.T) {
	builder := NewBuilder(4096)
	builder.Add([]byte("key1"), mo.None[[]byte]())
	builder.Add([]byte("key2"), mo.Some([]byte("value2")))

	blk, err := builder.Build()
	require.NoError(t, err)

	iter := NewIterator(blk)
	kv, ok := iter.Next()
	assert.True(t, ok)
	assert.Equal(t, types.KeyValue{Key: []byte("key2"), Value: []byte("value2")}, kv)

	_, ok = iter.Next()
	assert.False(t, ok)
}

func TestBlockIteratorAtKey(t *testing.T) {
	builder := NewBuilder(4096)
	builder.Add([]byte("key1"), mo.Some([]byte("value1")))
	builder.Add([]byte("key2"), mo.Some([]byte("value2")))
	builder.Add([]byte("key3"), mo.Some([]byte("value3")))

	blk, err := builder.Build()
	require.NoError(t, err)

	iter := NewIteratorAtKey(blk, []byte("key2"))
	entry, ok := iter.NextEntry()
	assert.True(t, ok)
	assert.Equal(t, []byte("key2"), entry.Key)

	// keys between rows position at the next row
	iter = NewIteratorAtKey(blk, []byte("key15"))
	entry, ok = iter.NextEntry()
	assert.True(t, ok)
	assert.Equal(t, []byte("key2"), entry.Key)

	// keys past the end exhaust immediately
	iter = NewIteratorAtKey(blk, []byte("key9"))
	_, ok = iter.NextEntry()
	assert.False(t, ok)
}
