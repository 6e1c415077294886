package bloom

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// Filter is a serialized bloom filter over the keys of one SST. The encoded
// form is a u16 probe count followed by the bit array.
type Filter struct {
	NumProbes uint16
	Data      []byte
}

func (f Filter) IsEmpty() bool {
	return len(f.Data) == 0
}

func (f Filter) HasKey(key []byte) bool {
	if f.IsEmpty() {
		return false
	}
	probes := probesForKey(xxh3.Hash(key), f.NumProbes, uint32(len(f.Data))*8)
	for _, p := range probes {
		if !f.checkBit(p) {
			return false
		}
	}
	return true
}

func (f Filter) checkBit(bit uint32) bool {
	byteIdx := bit / 8
	bitIdx := bit % 8
	return f.Data[byteIdx]&(1<<bitIdx) != 0
}

func (f Filter) Encode() []byte {
	encoded := make([]byte, 0, 2+len(f.Data))
	encoded = binary.BigEndian.AppendUint16(encoded, f.NumProbes)
	return append(encoded, f.Data...)
}

func Decode(data []byte) Filter {
	if len(data) < 2 {
		return Filter{}
	}
	return Filter{
		NumProbes: binary.BigEndian.Uint16(data[:2]),
		Data:      data[2:],
	}
}

// probesForKey derives probe positions with enhanced double hashing over the
// two halves of a 64-bit hash.
func probesForKey(hash uint64, numProbes uint16, numBits uint32) []uint32 {
	probes := make([]uint32, numProbes)
	h := uint32(hash)
	delta := uint32(hash >> 32)
	for i := uint16(0); i < numProbes; i++ {
		probes[i] = h % numBits
		h += delta
		delta += uint32(i) + 1
	}
	return probes
}

// ------------------------------------------------
// Builder
// ------------------------------------------------

type Builder struct {
	keyHashes  []uint64
	bitsPerKey uint32
}

func NewBuilder(bitsPerKey uint32) *Builder {
	return &Builder{bitsPerKey: bitsPerKey}
}

func (b *Builder) AddKey(key []byte) {
	b.keyHashes = append(b.keyHashes, xxh3.Hash(key))
}

func (b *Builder) NumKeys() int {
	return len(b.keyHashes)
}

func (b *Builder) Build() Filter {
	if len(b.keyHashes) == 0 {
		return Filter{}
	}
	numBits := filterBits(uint32(len(b.keyHashes)), b.bitsPerKey)
	numProbes := optimalProbes(b.bitsPerKey)
	data := make([]byte, numBits/8)
	filter := Filter{NumProbes: numProbes, Data: data}
	for _, hash := range b.keyHashes {
		for _, p := range probesForKey(hash, numProbes, numBits) {
			data[p/8] |= 1 << (p % 8)
		}
	}
	return filter
}

// filterBits rounds the bit count up to a whole number of bytes.
func filterBits(numKeys uint32, bitsPerKey uint32) uint32 {
	bits := numKeys * bitsPerKey
	return ((bits + 7) / 8) * 8
}

// optimalProbes is ln(2) * bits-per-key, the probe count that minimizes the
// false positive rate for a given filter size.
func optimalProbes(bitsPerKey uint32) uint16 {
	probes := uint16(math.Round(float64(bitsPerKey) * math.Ln2))
	if probes < 1 {
		return 1
	}
	if probes > 30 {
		return 30
	}
	return probes
}
