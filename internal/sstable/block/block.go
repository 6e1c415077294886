package block

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/types"
)

const (
	// tombstoneValueLen marks a deleted key in the row codec.
	tombstoneValueLen = math.MaxUint32

	keyLenSize   = 2
	valueLenSize = 4
	offsetSize   = 2
)

// Block is a sorted run of rows plus the offset of each row within Data.
// Row codec: u16 key length, key bytes, u32 value length, value bytes.
// A value length of 0xFFFFFFFF marks a tombstone and carries no value bytes.
type Block struct {
	Data    []byte
	Offsets []uint16
}

func (b *Block) Encode() []byte {
	bufSize := len(b.Data) + len(b.Offsets)*offsetSize + offsetSize

	buf := make([]byte, 0, bufSize)
	buf = append(buf, b.Data...)
	for _, offset := range b.Offsets {
		buf = binary.BigEndian.AppendUint16(buf, offset)
	}
	return binary.BigEndian.AppendUint16(buf, uint16(len(b.Offsets)))
}

func Decode(b *Block, bytes []byte) error {
	if len(bytes) < offsetSize {
		return common.ErrEmptyBlock
	}

	numOffsets := binary.BigEndian.Uint16(bytes[len(bytes)-offsetSize:])
	dataEnd := len(bytes) - offsetSize - int(numOffsets)*offsetSize
	if dataEnd < 0 {
		return common.ErrEmptyBlock
	}

	offsets := make([]uint16, 0, numOffsets)
	for i := 0; i < int(numOffsets); i++ {
		pos := dataEnd + i*offsetSize
		offsets = append(offsets, binary.BigEndian.Uint16(bytes[pos:pos+offsetSize]))
	}

	b.Data = bytes[:dataEnd]
	b.Offsets = offsets
	return nil
}

// ------------------------------------------------
// Builder
// ------------------------------------------------

type Builder struct {
	offsets   []uint16
	data      []byte
	blockSize uint64
	firstKey  []byte
}

func NewBuilder(blockSize uint64) *Builder {
	return &Builder{blockSize: blockSize}
}

func (b *Builder) estimatedSize() int {
	return len(b.data) + len(b.offsets)*offsetSize + offsetSize
}

// Add appends a row to the block. Returns false when the block is full;
// the first row is always accepted so oversized rows still land somewhere.
func (b *Builder) Add(key []byte, value mo.Option[[]byte]) bool {
	assert.True(len(key) > 0, "key must not be empty")

	valueLen := 0
	if val, ok := value.Get(); ok {
		valueLen = len(val)
	}
	rowSize := keyLenSize + len(key) + valueLenSize + valueLen
	if !b.IsEmpty() && uint64(b.estimatedSize()+rowSize) > b.blockSize {
		return false
	}

	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	if val, ok := value.Get(); ok {
		b.data = binary.BigEndian.AppendUint32(b.data, uint32(len(val)))
		b.data = append(b.data, val...)
	} else {
		b.data = binary.BigEndian.AppendUint32(b.data, tombstoneValueLen)
	}

	if b.firstKey == nil {
		b.firstKey = append([]byte(nil), key...)
	}
	return true
}

func (b *Builder) IsEmpty() bool {
	return len(b.offsets) == 0
}

func (b *Builder) FirstKey() []byte {
	return b.firstKey
}

func (b *Builder) Build() (*Block, error) {
	if b.IsEmpty() {
		return nil, common.ErrEmptyBlock
	}
	return &Block{Data: b.data, Offsets: b.offsets}, nil
}

// ------------------------------------------------
// Iterator
// ------------------------------------------------

type Iterator struct {
	block     *Block
	offsetIdx int
}

func NewIterator(block *Block) *Iterator {
	return &Iterator{block: block}
}

// NewIteratorAtKey positions the iterator at the first row whose key is
// greater than or equal to key.
func NewIteratorAtKey(block *Block, key []byte) *Iterator {
	iter := &Iterator{block: block}
	for iter.offsetIdx < len(block.Offsets) {
		entry, ok := iter.peek()
		if !ok || bytes.Compare(entry.Key, key) >= 0 {
			break
		}
		iter.offsetIdx++
	}
	return iter
}

func (iter *Iterator) NextEntry() (types.RowEntry, bool) {
	entry, ok := iter.peek()
	if !ok {
		return types.RowEntry{}, false
	}
	iter.offsetIdx++
	return entry, true
}

func (iter *Iterator) Next() (types.KeyValue, bool) {
	for {
		entry, ok := iter.NextEntry()
		if !ok {
			return types.KeyValue{}, false
		}
		if entry.Value.IsTombstone() {
			continue
		}
		return types.KeyValue{Key: entry.Key, Value: entry.Value.Value}, true
	}
}

func (iter *Iterator) peek() (types.RowEntry, bool) {
	if iter.offsetIdx >= len(iter.block.Offsets) {
		return types.RowEntry{}, false
	}

	data := iter.block.Data
	off := int(iter.block.Offsets[iter.offsetIdx])
	keyLen := int(binary.BigEndian.Uint16(data[off : off+keyLenSize]))
	off += keyLenSize
	key := data[off : off+keyLen]
	off += keyLen

	valueLen := binary.BigEndian.Uint32(data[off : off+valueLenSize])
	off += valueLenSize
	if valueLen == tombstoneValueLen {
		return types.RowEntry{Key: key, Value: types.Tombstone()}, true
	}
	value := data[off : off+int(valueLen)]
	return types.RowEntry{Key: key, Value: types.ValueFromBytes(value)}, true
}
