package sstable

import (
	"fmt"
	"strconv"

	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"
)

type IDType int

const (
	WAL IDType = iota + 1
	Compacted
)

// ID identifies an SST object. WAL SSTs carry a monotonic sequence number,
// compacted SSTs a time-sortable ULID. Identifiers are globally unique for
// the lifetime of the DB.
type ID struct {
	Type  IDType
	Value string
}

func NewIDWal(id uint64) ID {
	return ID{Type: WAL, Value: fmt.Sprintf("%020d", id)}
}

func NewIDCompacted(id ulid.ULID) ID {
	return ID{Type: Compacted, Value: id.String()}
}

func (id ID) WalID() mo.Option[uint64] {
	if id.Type != WAL {
		return mo.None[uint64]()
	}
	walID, err := strconv.ParseUint(id.Value, 10, 64)
	if err != nil {
		return mo.None[uint64]()
	}
	return mo.Some(walID)
}

func (id ID) CompactedID() mo.Option[ulid.ULID] {
	if id.Type != Compacted {
		return mo.None[ulid.ULID]()
	}
	u, err := ulid.Parse(id.Value)
	if err != nil {
		return mo.None[ulid.ULID]()
	}
	return mo.Some(u)
}

func (id ID) Clone() ID {
	return ID{Type: id.Type, Value: id.Value}
}
