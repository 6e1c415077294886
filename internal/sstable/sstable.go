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

const (
	checksumSize = 8
	footerSize   = 4
)

// Config describes the on-disk SST format parameters. The codec used at
// write time is recorded in the table's Info so readers never depend on it.
type Config struct {
	BlockSize        uint64
	MinFilterKeys    uint32
	FilterBitsPerKey uint32
	Compression      compress.Codec
}

func DefaultConfig() Config {
	return Config{
		BlockSize:        4096,
		MinFilterKeys:    0,
		FilterBitsPerKey: 10,
		Compression:      compress.CodecNone,
	}
}

func (c Config) Clone() Config {
	return c
}

// Info is the footer metadata of one SST: the table's first key, the file
// offsets of the filter and index regions, and the block codec.
type Info struct {
	FirstKey         []byte
	IndexOffset      uint64
	IndexLen         uint64
	FilterOffset     uint64
	FilterLen        uint64
	CompressionCodec compress.Codec
}

func (info *Info) Clone() *Info {
	return &Info{
		FirstKey:         append([]byte(nil), info.FirstKey...),
		IndexOffset:      info.IndexOffset,
		IndexLen:         info.IndexLen,
		FilterOffset:     info.FilterOffset,
		FilterLen:        info.FilterLen,
		CompressionCodec: info.CompressionCodec,
	}
}

// Encode serializes Info as a flatbuffer followed by an xxh3-64 of the
// payload.
func (info *Info) Encode() []byte {
	b := flatbuffers.NewBuilder(0)
	firstKey := b.CreateByteVector(info.FirstKey)
	flatbuf.SsTableInfoStart(b)
	flatbuf.SsTableInfoAddFirstKey(b, firstKey)
	flatbuf.SsTableInfoAddIndexOffset(b, info.IndexOffset)
	flatbuf.SsTableInfoAddIndexLen(b, info.IndexLen)
	flatbuf.SsTableInfoAddFilterOffset(b, info.FilterOffset)
	flatbuf.SsTableInfoAddFilterLen(b, info.FilterLen)
	flatbuf.SsTableInfoAddCompressionFormat(b, int8(info.CompressionCodec))
	b.Finish(flatbuf.SsTableInfoEnd(b))

	payload := b.FinishedBytes()
	encoded := make([]byte, 0, len(payload)+checksumSize)
	encoded = append(encoded, payload...)
	return binary.BigEndian.AppendUint64(encoded, xxh3.Hash(payload))
}

func DecodeInfo(data []byte) (*Info, error) {
	if len(data) <= checksumSize {
		return nil, common.ErrEmptyBlockMeta
	}
	payload := data[:len(data)-checksumSize]
	checksum := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if xxh3.Hash(payload) != checksum {
		return nil, common.ErrChecksumMismatch
	}

	fbInfo := flatbuf.GetRootAsSsTableInfo(payload, 0)
	return &Info{
		FirstKey:         append([]byte(nil), fbInfo.FirstKeyBytes()...),
		IndexOffset:      fbInfo.IndexOffset(),
		IndexLen:         fbInfo.IndexLen(),
		FilterOffset:     fbInfo.FilterOffset(),
		FilterLen:        fbInfo.FilterLen(),
		CompressionCodec: compress.Codec(fbInfo.CompressionFormat()),
	}, nil
}

// Handle is an opaque descriptor of one catalogued SST. Handles are never
// mutated once inserted into the catalog.
type Handle struct {
	Id   ID
	Info *Info
}

func NewHandle(id ID, info *Info) *Handle {
	return &Handle{Id: id, Info: info}
}

func (h *Handle) Clone() *Handle {
	return &Handle{Id: h.Id.Clone(), Info: h.Info.Clone()}
}

// Index is the encoded SsTableIndex flatbuffer listing the offset and first
// key of every block.
type Index struct {
	Data []byte
}

func (i *Index) ssTableIndex() *flatbuf.SsTableIndex {
	return flatbuf.GetRootAsSsTableIndex(i.Data, 0)
}

func (i *Index) BlockMetaLength() int {
	return i.ssTableIndex().BlockMetaLength()
}

func (i *Index) BlockMeta(idx int) (offset uint64, firstKey []byte) {
	var meta flatbuf.BlockMeta
	if !i.ssTableIndex().BlockMeta(&meta, idx) {
		return 0, nil
	}
	return meta.Offset(), meta.FirstKeyBytes()
}

func (i *Index) Clone() *Index {
	return &Index{Data: append([]byte(nil), i.Data...)}
}

// Table is a fully or partially encoded SST. Blocks holds the encoded chunks
// still to be written; the final chunk carries the filter, index, info and
// footer.
type Table struct {
	Info   *Info
	Bloom  mo.Option[bloom.Filter]
	Blocks *deque.Deque[[]byte]
}

// ------------------------------------------------
// Format read path
// ------------------------------------------------

// ReadInfo reads and decodes the Info footer from the end of an SST object.
func (c Config) ReadInfo(obj common.ReadOnlyBlob) (*Info, error) {
	size, err := obj.Len()
	if err != nil {
		return nil, err
	}
	if size <= footerSize+checksumSize {
		return nil, common.ErrEmptySSTable
	}

	footer, err := obj.ReadRange(common.Range{Start: uint64(size - footerSize), End: uint64(size)})
	if err != nil {
		return nil, err
	}
	infoOffset := binary.BigEndian.Uint32(footer)
	if int(infoOffset) >= size-footerSize {
		return nil, common.ErrEmptyBlockMeta
	}

	infoBytes, err := obj.ReadRange(common.Range{Start: uint64(infoOffset), End: uint64(size - footerSize)})
	if err != nil {
		return nil, err
	}
	return DecodeInfo(infoBytes)
}

func (c Config) ReadIndex(info *Info, obj common.ReadOnlyBlob) (*Index, error) {
	if info.IndexLen == 0 {
		return nil, common.ErrEmptyBlockMeta
	}
	data, err := obj.ReadRange(common.Range{Start: info.IndexOffset, End: info.IndexOffset + info.IndexLen})
	if err != nil {
		return nil, err
	}
	return &Index{Data: data}, nil
}

func (c Config) ReadFilter(info *Info, obj common.ReadOnlyBlob) (mo.Option[bloom.Filter], error) {
	if info.FilterLen == 0 {
		return mo.None[bloom.Filter](), nil
	}
	data, err := obj.ReadRange(common.Range{Start: info.FilterOffset, End: info.FilterOffset + info.FilterLen})
	if err != nil {
		return mo.None[bloom.Filter](), err
	}
	return mo.Some(bloom.Decode(data)), nil
}

// ReadBlocks reads the blocks in [rng.Start, rng.End) using the index to
// locate block boundaries. Each block is checksummed and decompressed.
func (c Config) ReadBlocks(info *Info, index *Index, rng common.Range, obj common.ReadOnlyBlob) ([]block.Block, error) {
	numBlocks := index.BlockMetaLength()
	assert.True(rng.Start <= rng.End, "invalid block range")
	assert.True(rng.End <= uint64(numBlocks), "block range past end of table")
	if rng.Start == rng.End {
		return []block.Block{}, nil
	}

	startOffset, _ := index.BlockMeta(int(rng.Start))
	endOffset := info.FilterOffset
	if int(rng.End) < numBlocks {
		endOffset, _ = index.BlockMeta(int(rng.End))
	}

	data, err := obj.ReadRange(common.Range{Start: startOffset, End: endOffset})
	if err != nil {
		return nil, err
	}

	blocks := make([]block.Block, 0, rng.End-rng.Start)
	for i := rng.Start; i < rng.End; i++ {
		blockStart, _ := index.BlockMeta(int(i))
		blockEnd := info.FilterOffset
		if int(i+1) < numBlocks {
			blockEnd, _ = index.BlockMeta(int(i + 1))
		}

		decoded, err := decodeBlock(data[blockStart-startOffset:blockEnd-startOffset], info.CompressionCodec)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, decoded)
	}
	return blocks, nil
}

func decodeBlock(data []byte, codec compress.Codec) (block.Block, error) {
	if len(data) <= checksumSize {
		return block.Block{}, common.ErrEmptyBlock
	}
	compressed := data[:len(data)-checksumSize]
	checksum := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if xxh3.Hash(compressed) != checksum {
		return block.Block{}, common.ErrChecksumMismatch
	}

	raw, err := compress.Decompress(compressed, codec)
	if err != nil {
		return block.Block{}, common.ErrBlockDecompression
	}

	var blk block.Block
	if err := block.Decode(&blk, raw); err != nil {
		return block.Block{}, err
	}
	return blk, nil
}
