package store

import (
	"encoding/binary"
	"sync/atomic"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"
	"github.com/zeebo/xxh3"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/compress"
	"github.com/basaltdb/basalt-go/internal/flatbuf"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

const (
	manifestMagic         uint32 = 0x424D414E // "BMAN"
	manifestFormatVersion uint16 = 1

	manifestHeaderSize   = 6
	manifestChecksumSize = 8
)

// ManifestCodec converts a Manifest to and from its persisted frame.
type ManifestCodec interface {
	Encode(manifest *Manifest) []byte
	Decode(data []byte) (*Manifest, error)
}

// FlatBufferManifestCodec frames a ManifestV1 flatbuffer with a magic, a
// format version, and a trailing xxh3-64 over the whole frame. Format skew
// fails ErrInvalidFlatbuffer rather than being silently upgraded.
type FlatBufferManifestCodec struct{}

func (c FlatBufferManifestCodec) Encode(manifest *Manifest) []byte {
	payload := c.encodeManifestV1(manifest)
	frame := make([]byte, 0, manifestHeaderSize+len(payload)+manifestChecksumSize)
	frame = binary.BigEndian.AppendUint32(frame, manifestMagic)
	frame = binary.BigEndian.AppendUint16(frame, manifestFormatVersion)
	frame = append(frame, payload...)
	return binary.BigEndian.AppendUint64(frame, xxh3.Hash(frame))
}

func (c FlatBufferManifestCodec) Decode(data []byte) (*Manifest, error) {
	if len(data) <= manifestHeaderSize+manifestChecksumSize {
		return nil, common.ErrInvalidFlatbuffer
	}
	body := data[:len(data)-manifestChecksumSize]
	checksum := binary.BigEndian.Uint64(data[len(data)-manifestChecksumSize:])
	if xxh3.Hash(body) != checksum {
		return nil, common.ErrChecksumMismatch
	}
	if binary.BigEndian.Uint32(body[0:4]) != manifestMagic {
		return nil, common.ErrInvalidFlatbuffer
	}
	if binary.BigEndian.Uint16(body[4:6]) != manifestFormatVersion {
		return nil, common.ErrInvalidFlatbuffer
	}
	return c.decodeManifestV1(body[manifestHeaderSize:])
}

func (c FlatBufferManifestCodec) encodeManifestV1(manifest *Manifest) []byte {
	core := manifest.Core
	b := flatbuffers.NewBuilder(0)

	l0Offsets := make([]flatbuffers.UOffsetT, 0, len(core.L0))
	for i := len(core.L0) - 1; i >= 0; i-- {
		l0Offsets = append(l0Offsets, encodeCompactedSsTable(b, &core.L0[i]))
	}
	flatbuf.ManifestV1StartL0Vector(b, len(l0Offsets))
	for _, off := range l0Offsets {
		b.PrependUOffsetT(off)
	}
	l0Vec := b.EndVector(len(l0Offsets))

	runOffsets := make([]flatbuffers.UOffsetT, 0, len(core.Compacted))
	for i := len(core.Compacted) - 1; i >= 0; i-- {
		runOffsets = append(runOffsets, encodeSortedRun(b, &core.Compacted[i]))
	}
	flatbuf.ManifestV1StartCompactedVector(b, len(runOffsets))
	for _, off := range runOffsets {
		b.PrependUOffsetT(off)
	}
	compactedVec := b.EndVector(len(runOffsets))

	l0LastCompacted := flatbuffers.UOffsetT(0)
	if id, ok := core.L0LastCompacted.Get(); ok {
		l0LastCompacted = encodeCompactedSstId(b, id)
	}

	flatbuf.ManifestV1Start(b)
	flatbuf.ManifestV1AddWriterEpoch(b, manifest.WriterEpoch.Load())
	flatbuf.ManifestV1AddCompactorEpoch(b, manifest.CompactorEpoch.Load())
	flatbuf.ManifestV1AddWalIdLastCompacted(b, core.LastCompactedWalSSTID.Load())
	flatbuf.ManifestV1AddWalIdLastSeen(b, core.NextWalSstID.Load()-1)
	if l0LastCompacted != 0 {
		flatbuf.ManifestV1AddL0LastCompacted(b, l0LastCompacted)
	}
	flatbuf.ManifestV1AddL0(b, l0Vec)
	flatbuf.ManifestV1AddCompacted(b, compactedVec)
	b.Finish(flatbuf.ManifestV1End(b))
	return b.FinishedBytes()
}

func (c FlatBufferManifestCodec) decodeManifestV1(payload []byte) (*Manifest, error) {
	fbManifest := flatbuf.GetRootAsManifestV1(payload, 0)

	l0 := make([]sstable.Handle, 0, fbManifest.L0Length())
	for i := 0; i < fbManifest.L0Length(); i++ {
		var fbSST flatbuf.CompactedSsTable
		if !fbManifest.L0(&fbSST, i) {
			return nil, common.ErrInvalidFlatbuffer
		}
		handle, err := decodeCompactedSsTable(&fbSST)
		if err != nil {
			return nil, err
		}
		l0 = append(l0, *handle)
	}

	compacted := make([]state.SortedRun, 0, fbManifest.CompactedLength())
	for i := 0; i < fbManifest.CompactedLength(); i++ {
		var fbRun flatbuf.SortedRun
		if !fbManifest.Compacted(&fbRun, i) {
			return nil, common.ErrInvalidFlatbuffer
		}
		sstList := make([]sstable.Handle, 0, fbRun.SstsLength())
		for j := 0; j < fbRun.SstsLength(); j++ {
			var fbSST flatbuf.CompactedSsTable
			if !fbRun.Ssts(&fbSST, j) {
				return nil, common.ErrInvalidFlatbuffer
			}
			handle, err := decodeCompactedSsTable(&fbSST)
			if err != nil {
				return nil, err
			}
			sstList = append(sstList, *handle)
		}
		compacted = append(compacted, state.SortedRun{ID: fbRun.Id(), SSTList: sstList})
	}

	l0LastCompacted := mo.None[ulid.ULID]()
	if fbID := fbManifest.L0LastCompacted(nil); fbID != nil {
		l0LastCompacted = mo.Some(decodeULID(fbID))
	}

	nextWalSstID := &atomic.Uint64{}
	nextWalSstID.Store(fbManifest.WalIdLastSeen() + 1)
	lastCompactedWalSSTID := &atomic.Uint64{}
	lastCompactedWalSSTID.Store(fbManifest.WalIdLastCompacted())

	writerEpoch := &atomic.Uint64{}
	writerEpoch.Store(fbManifest.WriterEpoch())
	compactorEpoch := &atomic.Uint64{}
	compactorEpoch.Store(fbManifest.CompactorEpoch())

	return &Manifest{
		Core: &state.CoreStateSnapshot{
			L0LastCompacted:       l0LastCompacted,
			L0:                    l0,
			Compacted:             compacted,
			NextWalSstID:          nextWalSstID,
			LastCompactedWalSSTID: lastCompactedWalSSTID,
		},
		WriterEpoch:    writerEpoch,
		CompactorEpoch: compactorEpoch,
	}, nil
}

func encodeCompactedSstId(b *flatbuffers.Builder, id ulid.ULID) flatbuffers.UOffsetT {
	flatbuf.CompactedSstIdStart(b)
	flatbuf.CompactedSstIdAddHigh(b, binary.BigEndian.Uint64(id[0:8]))
	flatbuf.CompactedSstIdAddLow(b, binary.BigEndian.Uint64(id[8:16]))
	return flatbuf.CompactedSstIdEnd(b)
}

func decodeULID(fbID *flatbuf.CompactedSstId) ulid.ULID {
	var id ulid.ULID
	binary.BigEndian.PutUint64(id[0:8], fbID.High())
	binary.BigEndian.PutUint64(id[8:16], fbID.Low())
	return id
}

func encodeCompactedSsTable(b *flatbuffers.Builder, handle *sstable.Handle) flatbuffers.UOffsetT {
	compactedID, ok := handle.Id.CompactedID().Get()
	assert.True(ok, "catalogued SSTs must carry compacted ids")
	idOff := encodeCompactedSstId(b, compactedID)

	firstKey := b.CreateByteVector(handle.Info.FirstKey)
	flatbuf.SsTableInfoStart(b)
	flatbuf.SsTableInfoAddFirstKey(b, firstKey)
	flatbuf.SsTableInfoAddIndexOffset(b, handle.Info.IndexOffset)
	flatbuf.SsTableInfoAddIndexLen(b, handle.Info.IndexLen)
	flatbuf.SsTableInfoAddFilterOffset(b, handle.Info.FilterOffset)
	flatbuf.SsTableInfoAddFilterLen(b, handle.Info.FilterLen)
	flatbuf.SsTableInfoAddCompressionFormat(b, int8(handle.Info.CompressionCodec))
	infoOff := flatbuf.SsTableInfoEnd(b)

	flatbuf.CompactedSsTableStart(b)
	flatbuf.CompactedSsTableAddId(b, idOff)
	flatbuf.CompactedSsTableAddInfo(b, infoOff)
	return flatbuf.CompactedSsTableEnd(b)
}

func decodeCompactedSsTable(fbSST *flatbuf.CompactedSsTable) (*sstable.Handle, error) {
	fbID := fbSST.Id(nil)
	fbInfo := fbSST.Info(nil)
	if fbID == nil || fbInfo == nil {
		return nil, common.ErrInvalidFlatbuffer
	}
	info := &sstable.Info{
		FirstKey:         append([]byte(nil), fbInfo.FirstKeyBytes()...),
		IndexOffset:      fbInfo.IndexOffset(),
		IndexLen:         fbInfo.IndexLen(),
		FilterOffset:     fbInfo.FilterOffset(),
		FilterLen:        fbInfo.FilterLen(),
		CompressionCodec: compress.Codec(fbInfo.CompressionFormat()),
	}
	return sstable.NewHandle(sstable.NewIDCompacted(decodeULID(fbID)), info), nil
}

func encodeSortedRun(b *flatbuffers.Builder, run *state.SortedRun) flatbuffers.UOffsetT {
	sstOffsets := make([]flatbuffers.UOffsetT, 0, len(run.SSTList))
	for i := len(run.SSTList) - 1; i >= 0; i-- {
		sstOffsets = append(sstOffsets, encodeCompactedSsTable(b, &run.SSTList[i]))
	}
	flatbuf.SortedRunStartSstsVector(b, len(sstOffsets))
	for _, off := range sstOffsets {
		b.PrependUOffsetT(off)
	}
	sstsVec := b.EndVector(len(sstOffsets))

	flatbuf.SortedRunStart(b)
	flatbuf.SortedRunAddId(b, run.ID)
	flatbuf.SortedRunAddSsts(b, sstsVec)
	return flatbuf.SortedRunEnd(b)
}
