package store

import (
	"encoding/binary"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"
	"github.com/zeebo/xxh3"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/internal"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

func appendChecksum(frame []byte) []byte {
	return binary.BigEndian.AppendUint64(frame, xxh3.Hash(frame))
}

func newTestManifestStore() *ManifestStore {
	bucket := objstore.NewInMemBucket()
	return NewManifestStore("/tmp/test_kv_store", bucket)
}

func testCore() *state.CoreStateSnapshot {
	return state.NewCoreDBState().Snapshot()
}

func testL0Handle(firstKey string) sstable.Handle {
	return *sstable.NewHandle(
		sstable.NewIDCompacted(ulid.Make()),
		&sstable.Info{FirstKey: []byte(firstKey), IndexOffset: 10, IndexLen: 20, FilterOffset: 5, FilterLen: 5},
	)
}

func TestBootstrapWritesManifestOne(t *testing.T) {
	ms := newTestManifestStore()
	stored, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.ID())

	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	sm, ok := loaded.Get()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), sm.ID())
}

func TestLoadStoredManifestEmptyStore(t *testing.T) {
	ms := newTestManifestStore()
	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	assert.True(t, loaded.IsAbsent())
}

func TestWriteManifestVersionExists(t *testing.T) {
	ms := newTestManifestStore()
	manifest := newManifest(testCore())
	require.NoError(t, ms.writeManifest(1, manifest))

	err := ms.writeManifest(1, manifest)
	assert.ErrorIs(t, err, common.ErrManifestVersionExists)
	assert.ErrorIs(t, err, internal.ErrAlreadyExists)
}

func TestReadManifestMissing(t *testing.T) {
	ms := newTestManifestStore()
	_, err := ms.readManifest(42)
	assert.Error(t, err)
}

func TestManifestVersionsDenseAndMonotone(t *testing.T) {
	ms := newTestManifestStore()
	stored, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, stored.UpdateDBState(testCore()))
	}

	ids, err := ms.listManifests()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
}

func TestInitFenceableManifestWriterBumpsEpoch(t *testing.T) {
	ms := newTestManifestStore()
	stored, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)

	fa, err := InitFenceableManifestWriter(stored)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fa.localEpoch)
	assert.Equal(t, uint64(2), stored.ID(), "claiming the epoch writes a manifest")

	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	sm, _ := loaded.Get()
	fb, err := InitFenceableManifestWriter(&sm)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fb.localEpoch)
}

func TestFencingDisplacesOlderWriter(t *testing.T) {
	ms := newTestManifestStore()
	storedA, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)
	fa, err := InitFenceableManifestWriter(storedA)
	require.NoError(t, err)

	// second process opens the DB and bumps the epoch
	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	smB, _ := loaded.Get()
	fb, err := InitFenceableManifestWriter(&smB)
	require.NoError(t, err)

	// the displaced writer fences on its next refresh and every write after
	_, err = fa.Refresh()
	assert.ErrorIs(t, err, common.ErrFenced)
	assert.ErrorIs(t, fa.UpdateDBState(testCore()), common.ErrFenced)

	// the new writer is unaffected
	require.NoError(t, fb.UpdateDBState(testCore()))
}

func TestCompactorEpochIsIndependent(t *testing.T) {
	ms := newTestManifestStore()
	storedA, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)
	fa, err := InitFenceableManifestWriter(storedA)
	require.NoError(t, err)

	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	smB, _ := loaded.Get()
	fc, err := InitFenceableManifestCompactor(&smB)
	require.NoError(t, err)

	// a compactor claiming its own epoch does not fence the writer
	_, err = fa.Refresh()
	require.NoError(t, err)
	require.NoError(t, fa.UpdateDBState(testCore()))

	_, err = fc.Refresh()
	require.NoError(t, err)
}

// A writer losing the version race to a concurrent peer re-reads and
// re-writes; both writers' changes survive in the final manifest.
func TestUpdateDBStateConflictRetryMergesChanges(t *testing.T) {
	ms := newTestManifestStore()
	storedA, err := NewStoredManifest(ms, testCore())
	require.NoError(t, err)

	loaded, err := LoadStoredManifest(ms)
	require.NoError(t, err)
	storedB, _ := loaded.Get()

	// A publishes a WAL watermark
	coreA := testCore()
	coreA.LastCompactedWalSSTID.Store(5)
	require.NoError(t, storedA.UpdateDBState(coreA))

	// B, working from the stale version, loses the race
	coreB := testCore()
	handle := testL0Handle("a")
	coreB.L0 = []sstable.Handle{handle}
	err = storedB.UpdateDBState(coreB)
	assert.ErrorIs(t, err, common.ErrManifestVersionExists)

	// B refreshes, reapplies its change on top of A's core, and re-writes
	refreshed, err := storedB.Refresh()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), refreshed.LastCompactedWalSSTID.Load())
	merged := refreshed.Clone()
	merged.L0 = []sstable.Handle{handle}
	require.NoError(t, storedB.UpdateDBState(merged))

	// the final manifest carries both changes
	final, err := storedA.Refresh()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), final.LastCompactedWalSSTID.Load())
	require.Len(t, final.L0, 1)
	assert.Equal(t, handle.Id, final.L0[0].Id)

	ids, err := ms.listManifests()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids, "exactly one version per successful write")
}

func TestCodecRoundTrip(t *testing.T) {
	codec := FlatBufferManifestCodec{}

	core := testCore()
	core.L0 = []sstable.Handle{testL0Handle("a"), testL0Handle("m")}
	lastCompacted := ulid.Make()
	core.L0LastCompacted = mo.Some(lastCompacted)
	core.Compacted = []state.SortedRun{
		{ID: 7, SSTList: []sstable.Handle{testL0Handle("b"), testL0Handle("q")}},
	}
	core.NextWalSstID.Store(12)
	core.LastCompactedWalSSTID.Store(9)

	manifest := newManifest(core)
	manifest.WriterEpoch.Store(3)
	manifest.CompactorEpoch.Store(2)

	decoded, err := codec.Decode(codec.Encode(manifest))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), decoded.WriterEpoch.Load())
	assert.Equal(t, uint64(2), decoded.CompactorEpoch.Load())
	assert.Equal(t, uint64(12), decoded.Core.NextWalSstID.Load())
	assert.Equal(t, uint64(9), decoded.Core.LastCompactedWalSSTID.Load())

	id, ok := decoded.Core.L0LastCompacted.Get()
	require.True(t, ok)
	assert.Equal(t, lastCompacted, id)

	require.Len(t, decoded.Core.L0, 2)
	assert.Equal(t, core.L0[0].Id, decoded.Core.L0[0].Id)
	assert.Equal(t, core.L0[0].Info.FirstKey, decoded.Core.L0[0].Info.FirstKey)
	assert.Equal(t, core.L0[1].Id, decoded.Core.L0[1].Id)

	require.Len(t, decoded.Core.Compacted, 1)
	assert.Equal(t, uint32(7), decoded.Core.Compacted[0].ID)
	require.Len(t, decoded.Core.Compacted[0].SSTList, 2)
	assert.Equal(t, core.Compacted[0].SSTList[1].Id, decoded.Core.Compacted[0].SSTList[1].Id)
}

func TestCodecRejectsCorruptFrames(t *testing.T) {
	codec := FlatBufferManifestCodec{}
	encoded := codec.Encode(newManifest(testCore()))

	truncated := encoded[:8]
	_, err := codec.Decode(truncated)
	assert.ErrorIs(t, err, common.ErrInvalidFlatbuffer)

	flipped := append([]byte(nil), encoded...)
	flipped[7] ^= 0xff
	_, err = codec.Decode(flipped)
	assert.ErrorIs(t, err, common.ErrChecksumMismatch)

	badMagic := append([]byte(nil), encoded...)
	badMagic[0] ^= 0xff
	_, err = codec.Decode(badMagic)
	assert.ErrorIs(t, err, common.ErrChecksumMismatch, "checksum covers the magic too")
}

func TestCodecRejectsNewerFormatVersion(t *testing.T) {
	// a frame from a future format version must not be silently upgraded
	codec := FlatBufferManifestCodec{}
	encoded := codec.Encode(newManifest(testCore()))

	skewed := append([]byte(nil), encoded[:len(encoded)-manifestChecksumSize]...)
	skewed[5] = 0xff
	frame := append([]byte(nil), skewed...)
	frame = appendChecksum(frame)
	_, err := codec.Decode(frame)
	assert.ErrorIs(t, err, common.ErrInvalidFlatbuffer)
}
