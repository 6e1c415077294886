package state

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/basalt/table"
	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

// CoreDBState is the durable catalog: the part of DB state that is persisted
// to the manifest. The immutable memtable and WAL queues are process-local
// and deliberately not part of it.
type CoreDBState struct {
	l0LastCompacted       mo.Option[ulid.ULID]
	l0                    []sstable.Handle
	compacted             []SortedRun
	nextWalSstID          *atomic.Uint64
	lastCompactedWalSSTID *atomic.Uint64
}

func NewCoreDBState() *CoreDBState {
	core := &CoreDBState{
		l0LastCompacted:       mo.None[ulid.ULID](),
		l0:                    make([]sstable.Handle, 0),
		compacted:             make([]SortedRun, 0),
		nextWalSstID:          &atomic.Uint64{},
		lastCompactedWalSSTID: &atomic.Uint64{},
	}
	core.nextWalSstID.Store(1)
	return core
}

func (c *CoreDBState) Clone() *CoreDBState {
	l0 := make([]sstable.Handle, 0, len(c.l0))
	for _, sst := range c.l0 {
		l0 = append(l0, *sst.Clone())
	}
	compacted := make([]SortedRun, 0, len(c.compacted))
	for _, run := range c.compacted {
		compacted = append(compacted, *run.Clone())
	}
	clone := NewCoreDBState()
	clone.l0LastCompacted = c.l0LastCompacted
	clone.l0 = l0
	clone.compacted = compacted
	clone.nextWalSstID.Store(c.nextWalSstID.Load())
	clone.lastCompactedWalSSTID.Store(c.lastCompactedWalSSTID.Load())
	return clone
}

func (c *CoreDBState) Snapshot() *CoreStateSnapshot {
	clone := c.Clone()
	return &CoreStateSnapshot{
		L0LastCompacted:       clone.l0LastCompacted,
		L0:                    clone.l0,
		Compacted:             clone.compacted,
		NextWalSstID:          clone.nextWalSstID,
		LastCompactedWalSSTID: clone.lastCompactedWalSSTID,
	}
}

// CoreStateSnapshot is an immutable copy of the catalog, the form in which
// the core crosses the manifest boundary.
type CoreStateSnapshot struct {
	L0LastCompacted       mo.Option[ulid.ULID]
	L0                    []sstable.Handle
	Compacted             []SortedRun
	NextWalSstID          *atomic.Uint64
	LastCompactedWalSSTID *atomic.Uint64
}

func (s *CoreStateSnapshot) Clone() *CoreStateSnapshot {
	return s.toCoreState().Snapshot()
}

// CoreFromSnapshot rebuilds a working core from a snapshot, used when a
// fresh process adopts the manifest's catalog wholesale at open.
func CoreFromSnapshot(s *CoreStateSnapshot) *CoreDBState {
	return s.toCoreState()
}

func (s *CoreStateSnapshot) toCoreState() *CoreDBState {
	core := NewCoreDBState()
	core.l0LastCompacted = s.L0LastCompacted
	core.l0 = s.L0
	core.compacted = s.Compacted
	core.nextWalSstID.Store(s.NextWalSstID.Load())
	core.lastCompactedWalSSTID.Store(s.LastCompactedWalSSTID.Load())
	return core
}

// DBStateSnapshot is a point-in-time view of the whole DB state.
type DBStateSnapshot struct {
	Core *CoreStateSnapshot
}

// DBState is the shared, mutable state of an open DB: the catalog plus the
// process-local queues of frozen tables, all guarded by one reader/writer
// lock. The lock is never held across I/O; callers clone out what they need.
type DBState struct {
	sync.RWMutex
	memtable    *table.Memtable
	wal         *table.WAL
	immMemtable *deque.Deque[*table.ImmutableMemtable]
	immWAL      *deque.Deque[*table.ImmutableWAL]
	core        *CoreDBState

	// fatalErr latches the first fatal error; user operations fail fast
	// once it is set.
	fatalErr error
}

func NewDBState(core *CoreDBState) *DBState {
	return &DBState{
		memtable:    table.NewMemtable(),
		wal:         table.NewWAL(),
		immMemtable: deque.New[*table.ImmutableMemtable](),
		immWAL:      deque.New[*table.ImmutableWAL](),
		core:        core,
	}
}

func (s *DBState) WAL() *table.WAL {
	s.RLock()
	defer s.RUnlock()
	return s.wal
}

func (s *DBState) Memtable() *table.Memtable {
	s.RLock()
	defer s.RUnlock()
	return s.memtable
}

func (s *DBState) ImmWALs() *deque.Deque[*table.ImmutableWAL] {
	s.RLock()
	defer s.RUnlock()
	return s.immWAL
}

func (s *DBState) ImmMemtables() *deque.Deque[*table.ImmutableMemtable] {
	s.RLock()
	defer s.RUnlock()
	return s.immMemtable
}

// ImmWALsList returns the immutable WALs newest first, cloned out so the
// caller holds no lock while reading them.
func (s *DBState) ImmWALsList() []*table.ImmutableWAL {
	s.RLock()
	defer s.RUnlock()
	wals := make([]*table.ImmutableWAL, 0, s.immWAL.Len())
	for i := 0; i < s.immWAL.Len(); i++ {
		wals = append(wals, s.immWAL.At(i))
	}
	return wals
}

// ImmMemtablesList returns the immutable memtables newest first.
func (s *DBState) ImmMemtablesList() []*table.ImmutableMemtable {
	s.RLock()
	defer s.RUnlock()
	memtables := make([]*table.ImmutableMemtable, 0, s.immMemtable.Len())
	for i := 0; i < s.immMemtable.Len(); i++ {
		memtables = append(memtables, s.immMemtable.At(i))
	}
	return memtables
}

// SetNextWalSstID advances the next WAL id past SSTs discovered during
// recovery that a crash kept out of the manifest.
func (s *DBState) SetNextWalSstID(id uint64) {
	s.Lock()
	defer s.Unlock()
	if id > s.core.nextWalSstID.Load() {
		s.core.nextWalSstID.Store(id)
	}
}

func (s *DBState) OldestImmWAL() mo.Option[*table.ImmutableWAL] {
	s.RLock()
	defer s.RUnlock()
	if s.immWAL.Len() == 0 {
		return mo.None[*table.ImmutableWAL]()
	}
	return mo.Some(s.immWAL.Back())
}

func (s *DBState) OldestImmMemtable() mo.Option[*table.ImmutableMemtable] {
	s.RLock()
	defer s.RUnlock()
	if s.immMemtable.Len() == 0 {
		return mo.None[*table.ImmutableMemtable]()
	}
	return mo.Some(s.immMemtable.Back())
}

// NextImmMemtableForFlush returns the oldest immutable memtable if L0 has
// room, otherwise None plus the current L0 count so the caller can report
// the back-pressure.
func (s *DBState) NextImmMemtableForFlush(l0MaxSSTs int) (mo.Option[*table.ImmutableMemtable], int) {
	s.RLock()
	defer s.RUnlock()
	l0Count := len(s.core.l0)
	if l0Count >= l0MaxSSTs {
		return mo.None[*table.ImmutableMemtable](), l0Count
	}
	if s.immMemtable.Len() == 0 {
		return mo.None[*table.ImmutableMemtable](), l0Count
	}
	return mo.Some(s.immMemtable.Back()), l0Count
}

func (s *DBState) PopImmWAL() {
	s.Lock()
	defer s.Unlock()
	s.immWAL.PopBack()
}

// FreezeWAL seals the mutable WAL under the next WAL SST id and queues it
// for flushing. Returns None if the WAL is empty.
func (s *DBState) FreezeWAL() mo.Option[uint64] {
	s.Lock()
	defer s.Unlock()
	if s.wal.IsEmpty() {
		return mo.None[uint64]()
	}
	walID := s.core.nextWalSstID.Load()
	s.immWAL.PushFront(table.NewImmutableWAL(walID, s.wal.Replace()))
	s.core.nextWalSstID.Add(1)
	return mo.Some(walID)
}

// FreezeMemtable seals the active memtable and queues it for flush to L0.
func (s *DBState) FreezeMemtable(walID uint64) {
	s.Lock()
	defer s.Unlock()
	oldMemtable := s.memtable
	s.memtable = table.NewMemtable()
	s.immMemtable.PushFront(table.NewImmutableMemtable(oldMemtable, walID))
}

// MoveImmMemtableToL0 pops the oldest immutable memtable and pushes its SST
// handle onto the front of L0 in a single critical section, so readers never
// observe the rows in both places or neither.
func (s *DBState) MoveImmMemtableToL0(imm *table.ImmutableMemtable, handle *sstable.Handle) {
	s.Lock()
	defer s.Unlock()
	popped := s.immMemtable.PopBack()
	assert.True(popped == imm, "flushed memtable must be the oldest queued")

	s.core.l0 = append([]sstable.Handle{*handle}, s.core.l0...)
	s.core.lastCompactedWalSSTID.Store(imm.LastWalID())
}

// RefreshDBState folds a manifest snapshot into the catalog. The compacted
// levels belong to the compactor and are adopted wholesale; L0 additions
// belong to this process, so the manifest only ever shrinks L0 through
// l0LastCompacted. The process-local queues are untouched.
func (s *DBState) RefreshDBState(snapshot *CoreStateSnapshot) {
	s.Lock()
	defer s.Unlock()

	s.core.l0LastCompacted = snapshot.L0LastCompacted
	s.core.compacted = snapshot.Compacted
	if lastCompacted, ok := snapshot.L0LastCompacted.Get(); ok {
		newL0 := make([]sstable.Handle, 0, len(s.core.l0))
		for _, sst := range s.core.l0 {
			id, ok := sst.Id.CompactedID().Get()
			if ok && id == lastCompacted {
				break
			}
			newL0 = append(newL0, sst)
		}
		s.core.l0 = newL0
	}
}

func (s *DBState) CoreStateSnapshot() *CoreStateSnapshot {
	s.RLock()
	defer s.RUnlock()
	return s.core.Snapshot()
}

func (s *DBState) Snapshot() *DBStateSnapshot {
	return &DBStateSnapshot{Core: s.CoreStateSnapshot()}
}

// LogDBRuns dumps the shape of the catalog, used when back-pressure stalls a
// flush.
func (s *DBState) LogDBRuns(log *slog.Logger) {
	s.RLock()
	defer s.RUnlock()
	runs := make([]uint32, 0, len(s.core.compacted))
	for _, run := range s.core.compacted {
		runs = append(runs, run.ID)
	}
	log.Info("db runs", "l0", len(s.core.l0), "compacted", runs)
}

// SetErrorIfNone latches err as the DB's first fatal error. Later errors
// are dropped.
func (s *DBState) SetErrorIfNone(err error) {
	s.Lock()
	defer s.Unlock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
}

// Error returns the latched fatal error, if any.
func (s *DBState) Error() error {
	s.RLock()
	defer s.RUnlock()
	return s.fatalErr
}
