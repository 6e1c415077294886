package config

import (
	"errors"
	"log/slog"
	"time"

	"github.com/basaltdb/basalt-go/internal/compress"
)

// DBOptions configures an open DB. Zero values are rejected for the fields
// the flush subsystem depends on.
type DBOptions struct {
	// FlushInterval is how often the WAL is flushed to the object store.
	FlushInterval time.Duration

	// ManifestPollInterval is how often the memtable flush task refreshes
	// the manifest and attempts a flush.
	ManifestPollInterval time.Duration

	// MinFilterKeys is the minimum number of keys an SST needs before a
	// bloom filter is written for it.
	MinFilterKeys uint32

	// L0SSTSizeBytes is the memtable size at which it is frozen and queued
	// for flushing to L0.
	L0SSTSizeBytes uint64

	// L0MaxSSTs caps the L0 count; once reached, memtable flushes stall
	// until a compactor shrinks L0.
	L0MaxSSTs int

	CompressionCodec compress.Codec

	Log *slog.Logger
}

func DefaultDBOptions() DBOptions {
	return DBOptions{
		FlushInterval:        100 * time.Millisecond,
		ManifestPollInterval: 100 * time.Millisecond,
		MinFilterKeys:        0,
		L0SSTSizeBytes:       64 * 1024 * 1024,
		L0MaxSSTs:            8,
		CompressionCodec:     compress.CodecNone,
		Log:                  slog.Default(),
	}
}

func (o *DBOptions) Validate() error {
	if o.FlushInterval <= 0 {
		return errors.New("FlushInterval must be positive")
	}
	if o.ManifestPollInterval <= 0 {
		return errors.New("ManifestPollInterval must be positive")
	}
	if o.L0SSTSizeBytes == 0 {
		return errors.New("L0SSTSizeBytes must be positive")
	}
	if o.L0MaxSSTs <= 0 {
		return errors.New("L0MaxSSTs must be positive")
	}
	return nil
}

type ReadLevel int

const (
	// Committed reads only data that has been flushed out of the WAL.
	Committed ReadLevel = iota
	// Uncommitted also reads data still sitting in the WAL.
	Uncommitted
)

type ReadOptions struct {
	ReadLevel ReadLevel
}

type WriteOptions struct {
	// AwaitDurable blocks the write until the data survives a crash.
	AwaitDurable bool
}

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{AwaitDurable: true}
}
