package sstable

import (
	"encoding/binary"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/gammazero/deque"
	"github.com/samber/mo"
	"github.com/zeebo/xxh3"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/compress"
	"github.com/basaltdb/basalt-go/internal/flatbuf"
	"github.com/basaltdb/basalt-go/internal/sstable/block"
	"github.com/basaltdb/basalt-go/internal/sstable/bloom"
)

type blockMeta struct {
	offset   uint64
	firstKey []byte
}

// Builder encodes an SST incrementally. Finished blocks can be drained with
// NextBlock while rows are still being added; blocks that are not drained
// stay queued and are returned by Build.
type Builder struct {
	config         Config
	blockBuilder   *block.Builder
	filterBuilder  *bloom.Builder
	finishedBlocks *deque.Deque[[]byte]
	blockMetas     []blockMeta
	firstKey       []byte
	currentOffset  uint64
	numKeys        uint32
}

func NewBuilder(config Config) *Builder {
	return &Builder{
		config:         config,
		blockBuilder:   block.NewBuilder(config.BlockSize),
		filterBuilder:  bloom.NewBuilder(config.FilterBitsPerKey),
		finishedBlocks: deque.New[[]byte](),
	}
}

// Add appends a row. A present value stores the bytes, an absent value
// stores a tombstone. Keys must arrive in strictly ascending order.
func (b *Builder) Add(key []byte, value mo.Option[[]byte]) error {
	if !b.blockBuilder.Add(key, value) {
		if err := b.finishBlock(); err != nil {
			return err
		}
		added := b.blockBuilder.Add(key, value)
		assert.True(added, "block builder must accept the first row of a fresh block")
	}

	if b.firstKey == nil {
		b.firstKey = append([]byte(nil), key...)
	}
	b.filterBuilder.AddKey(key)
	b.numKeys++
	return nil
}

// AddValue is Add with nil meaning tombstone, for callers that carry values
// as plain byte slices.
func (b *Builder) AddValue(key []byte, value []byte) error {
	if value == nil {
		return b.Add(key, mo.None[[]byte]())
	}
	return b.Add(key, mo.Some(value))
}

// NextBlock pops the oldest fully-encoded block, if any.
func (b *Builder) NextBlock() mo.Option[[]byte] {
	if b.finishedBlocks.Len() == 0 {
		return mo.None[[]byte]()
	}
	return mo.Some(b.finishedBlocks.PopFront())
}

func (b *Builder) finishBlock() error {
	if b.blockBuilder.IsEmpty() {
		return nil
	}

	blk, err := b.blockBuilder.Build()
	if err != nil {
		return err
	}
	compressed, err := compress.Compress(blk.Encode(), b.config.Compression)
	if err != nil {
		return common.ErrBlockCompression
	}

	encoded := make([]byte, 0, len(compressed)+checksumSize)
	encoded = append(encoded, compressed...)
	encoded = binary.BigEndian.AppendUint64(encoded, xxh3.Hash(compressed))

	b.blockMetas = append(b.blockMetas, blockMeta{
		offset:   b.currentOffset,
		firstKey: b.blockBuilder.FirstKey(),
	})
	b.currentOffset += uint64(len(encoded))
	b.finishedBlocks.PushBack(encoded)
	b.blockBuilder = block.NewBuilder(b.config.BlockSize)
	return nil
}

// Build finishes the table: flushes the trailing block and appends the
// filter, index, info and footer as one final chunk.
func (b *Builder) Build() (*Table, error) {
	if err := b.finishBlock(); err != nil {
		return nil, err
	}
	if len(b.blockMetas) == 0 {
		return nil, common.ErrEmptySSTable
	}

	var tail []byte
	filterOffset := b.currentOffset
	filterLen := uint64(0)
	maybeFilter := mo.None[bloom.Filter]()
	if b.numKeys >= b.config.MinFilterKeys {
		filter := b.filterBuilder.Build()
		encoded := filter.Encode()
		filterLen = uint64(len(encoded))
		tail = append(tail, encoded...)
		maybeFilter = mo.Some(filter)
	}

	indexOffset := filterOffset + filterLen
	indexBytes := encodeIndex(b.blockMetas)
	tail = append(tail, indexBytes...)

	info := &Info{
		FirstKey:         b.firstKey,
		IndexOffset:      indexOffset,
		IndexLen:         uint64(len(indexBytes)),
		FilterOffset:     filterOffset,
		FilterLen:        filterLen,
		CompressionCodec: b.config.Compression,
	}
	infoOffset := indexOffset + uint64(len(indexBytes))
	tail = append(tail, info.Encode()...)
	tail = binary.BigEndian.AppendUint32(tail, uint32(infoOffset))

	b.finishedBlocks.PushBack(tail)
	return &Table{
		Info:   info,
		Bloom:  maybeFilter,
		Blocks: b.finishedBlocks,
	}, nil
}

func encodeIndex(metas []blockMeta) []byte {
	fb := flatbuffers.NewBuilder(0)
	metaOffsets := make([]flatbuffers.UOffsetT, 0, len(metas))
	for i := len(metas) - 1; i >= 0; i-- {
		firstKey := fb.CreateByteVector(metas[i].firstKey)
		flatbuf.BlockMetaStart(fb)
		flatbuf.BlockMetaAddOffset(fb, metas[i].offset)
		flatbuf.BlockMetaAddFirstKey(fb, firstKey)
		metaOffsets = append(metaOffsets, flatbuf.BlockMetaEnd(fb))
	}

	flatbuf.SsTableIndexStartBlockMetaVector(fb, len(metaOffsets))
	for _, off := range metaOffsets {
		fb.PrependUOffsetT(off)
	}
	metaVec := fb.EndVector(len(metaOffsets))

	flatbuf.SsTableIndexStart(fb)
	flatbuf.SsTableIndexAddBlockMeta(fb, metaVec)
	fb.Finish(flatbuf.SsTableIndexEnd(fb))
	return fb.FinishedBytes()
}
