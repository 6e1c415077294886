package sstable

import (
	"context"
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/internal/compress"
	"github.com/basaltdb/basalt-go/internal/sstable/block"
)

type bytesBlob struct {
	data []byte
}

func (b bytesBlob) Len() (int, error) {
	return len(b.data), nil
}

func (b bytesBlob) ReadRange(rng common.Range) ([]byte, error) {
	return b.data[rng.Start:rng.End], nil
}

func (b bytesBlob) Read() ([]byte, error) {
	return b.data, nil
}

type blobSource struct {
	config Config
	blob   bytesBlob
}

func (s blobSource) ReadIndex(handle *Handle) (*Index, error) {
	return s.config.ReadIndex(handle.Info, s.blob)
}

func (s blobSource) ReadBlocksUsingIndex(handle *Handle, rng common.Range, index *Index) ([]block.Block, error) {
	return s.config.ReadBlocks(handle.Info, index, rng, s.blob)
}

func buildSST(t *testing.T, config Config, numKeys int) (*Handle, bytesBlob) {
	t.Helper()
	builder := NewBuilder(config)
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("key%05d", i))
		value := []byte(fmt.Sprintf("value%05d", i))
		require.NoError(t, builder.Add(key, mo.Some(value)))
	}
	encodedSST, err := builder.Build()
	require.NoError(t, err)

	data := make([]byte, 0)
	for i := 0; i < encodedSST.Blocks.Len(); i++ {
		data = append(data, encodedSST.Blocks.At(i)...)
	}
	return NewHandle(NewIDCompacted(ulid.Make()), encodedSST.Info), bytesBlob{data}
}

func TestSSTableInfoRoundTrip(t *testing.T) {
	config := DefaultConfig()
	handle, blob := buildSST(t, config, 10)

	info, err := config.ReadInfo(blob)
	require.NoError(t, err)
	assert.Equal(t, handle.Info.FirstKey, info.FirstKey)
	assert.Equal(t, handle.Info.IndexOffset, info.IndexOffset)
	assert.Equal(t, handle.Info.IndexLen, info.IndexLen)
	assert.Equal(t, handle.Info.FilterOffset, info.FilterOffset)
	assert.Equal(t, handle.Info.FilterLen, info.FilterLen)
	assert.Equal(t, handle.Info.CompressionCodec, info.CompressionCodec)
}

func TestSSTableIterate(t *testing.T) {
	config := DefaultConfig()
	handle, blob := buildSST(t, config, 100)

	iter, err := NewIterator(handle, blobSource{config, blob})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		kv, ok := iter.Next(ctx)
		assert.True(t, ok)
		assert.Equal(t, []byte(fmt.Sprintf("key%05d", i)), kv.Key)
		assert.Equal(t, []byte(fmt.Sprintf("value%05d", i)), kv.Value)
	}
	_, ok := iter.Next(ctx)
	assert.False(t, ok)
	assert.Nil(t, iter.Warnings())
}

func TestSSTableIterateManyBlocks(t *testing.T) {
	config := DefaultConfig()
	config.BlockSize = 64
	handle, blob := buildSST(t, config, 200)

	index, err := config.ReadIndex(handle.Info, blob)
	require.NoError(t, err)
	assert.Greater(t, index.BlockMetaLength(), 1)

	iter, err := NewIterator(handle, blobSource{config, blob})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		kv, ok := iter.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, []byte(fmt.Sprintf("key%05d", i)), kv.Key)
	}
	_, ok := iter.Next(ctx)
	assert.False(t, ok)
}

func TestSSTableIterateAtKey(t *testing.T) {
	config := DefaultConfig()
	config.BlockSize = 64
	handle, blob := buildSST(t, config, 50)

	iter, err := NewIteratorAtKey(handle, []byte("key00025"), blobSource{config, blob})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 25; i < 50; i++ {
		kv, ok := iter.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, []byte(fmt.Sprintf("key%05d", i)), kv.Key)
	}
	_, ok := iter.Next(ctx)
	assert.False(t, ok)
}

func TestSSTableCompressedBlocks(t *testing.T) {
	for _, codec := range []compress.Codec{compress.CodecSnappy, compress.CodecLz4, compress.CodecZstd} {
		config := DefaultConfig()
		config.Compression = codec
		handle, blob := buildSST(t, config, 50)

		iter, err := NewIterator(handle, blobSource{config, blob})
		require.NoError(t, err)

		ctx := context.Background()
		for i := 0; i < 50; i++ {
			kv, ok := iter.Next(ctx)
			require.True(t, ok)
			assert.Equal(t, []byte(fmt.Sprintf("key%05d", i)), kv.Key)
		}
	}
}

func TestSSTableCorruptInfoChecksum(t *testing.T) {
	config := DefaultConfig()
	_, blob := buildSST(t, config, 10)

	// flip a byte inside the info region
	blob.data[len(blob.data)-6] ^= 0xff
	_, err := config.ReadInfo(blob)
	assert.ErrorIs(t, err, common.ErrChecksumMismatch)
}

func TestSSTableCorruptBlockChecksum(t *testing.T) {
	config := DefaultConfig()
	handle, blob := buildSST(t, config, 10)

	blob.data[0] ^= 0xff
	index, err := config.ReadIndex(handle.Info, blob)
	require.NoError(t, err)
	_, err = config.ReadBlocks(handle.Info, index, common.Range{Start: 0, End: 1}, blob)
	assert.ErrorIs(t, err, common.ErrChecksumMismatch)
}

func TestEmptySSTable(t *testing.T) {
	builder := NewBuilder(DefaultConfig())
	_, err := builder.Build()
	assert.ErrorIs(t, err, common.ErrEmptySSTable)
}

func TestSSTableIDConversions(t *testing.T) {
	walID := NewIDWal(42)
	id, ok := walID.WalID().Get()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
	assert.True(t, walID.CompactedID().IsAbsent())

	u := ulid.Make()
	compactedID := NewIDCompacted(u)
	parsed, ok := compactedID.CompactedID().Get()
	assert.True(t, ok)
	assert.Equal(t, u, parsed)
	assert.True(t, compactedID.WalID().IsAbsent())
}
