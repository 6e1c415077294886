package common

import (
	"errors"
	"fmt"

	"github.com/basaltdb/basalt-go/internal"
)

var (
	// ErrKeyNotFound is returned by reads when a key is absent or shadowed
	// by a tombstone.
	ErrKeyNotFound = errors.New("key not found")

	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrEmptySSTable     = errors.New("empty SSTable")
	ErrEmptyBlockMeta   = errors.New("empty block metadata")
	ErrEmptyBlock       = errors.New("empty block")

	// ErrObjectStore wraps transport failures talking to the bucket.
	// Non-fatal per attempt, fatal once latched as the DB's first error.
	ErrObjectStore = errors.New("object store error")
	ErrIo          = errors.New("io error")

	// ErrManifestVersionExists signals a lost race on a manifest version.
	// It is the only error retried inside write loops.
	ErrManifestVersionExists = fmt.Errorf("manifest file already exists: %w", internal.ErrAlreadyExists)

	// ErrLatestManifestMissing means the store holds no manifest at all.
	ErrLatestManifestMissing = errors.New("failed to find latest manifest")

	ErrInvalidFlatbuffer = errors.New("invalid flatbuffer")
	ErrInvalidDBState    = errors.New("invalid DB state")

	// ErrFenced means a newer epoch was observed in the manifest store.
	// This process may no longer publish; fatal.
	ErrFenced = errors.New("detected newer DB client")

	ErrInvalidCompressionCodec = errors.New("invalid compression codec")
	ErrBlockCompression        = errors.New("error compressing block")
	ErrBlockDecompression      = errors.New("error decompressing block")
	ErrInvalidRowFlags         = errors.New("unknown row flags -- this may be caused by reading data encoded with a newer codec")

	ErrWalFlushChannel      = errors.New("error flushing immutable wals: channel closed")
	ErrMemtableFlushChannel = errors.New("error flushing memtables: channel closed")
	ErrReadChannel          = errors.New("read channel error")
)

// ErrManifestMissing reports a read of a manifest version that is absent
// from the object store.
func ErrManifestMissing(version uint64) error {
	return fmt.Errorf("failed to find manifest with id %d", version)
}

// ErrInvalidClockTick reports a non-monotonic clock observation.
func ErrInvalidClockTick(lastTick, nextTick int64) error {
	return fmt.Errorf("invalid clock tick, must be monotonic. Last tick: %d, Next tick: %d", lastTick, nextTick)
}
