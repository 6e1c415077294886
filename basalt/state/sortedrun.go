package state

import (
	"bytes"
	"sort"

	"github.com/samber/mo"

	"github.com/basaltdb/basalt-go/internal/assert"
	"github.com/basaltdb/basalt-go/internal/sstable"
)

// SortedRun is one compacted level: a sequence of SSTs with disjoint,
// ascending key ranges. Runs are produced by a compactor peer and reach this
// process only through the manifest.
type SortedRun struct {
	ID      uint32
	SSTList []sstable.Handle
}

func (s *SortedRun) indexOfSSTWithKey(key []byte) mo.Option[int] {
	index := sort.Search(len(s.SSTList), func(i int) bool {
		assert.True(len(s.SSTList[i].Info.FirstKey) != 0, "sst must have first key")
		return bytes.Compare(s.SSTList[i].Info.FirstKey, key) > 0
	})
	if index > 0 {
		return mo.Some(index - 1)
	}
	return mo.None[int]()
}

// SstWithKey returns the only SST in the run that can contain key.
func (s *SortedRun) SstWithKey(key []byte) mo.Option[sstable.Handle] {
	index, ok := s.indexOfSSTWithKey(key).Get()
	if ok {
		return mo.Some(s.SSTList[index])
	}
	return mo.None[sstable.Handle]()
}

// SstsFromKey returns the tail of the run starting at the SST that can
// contain key.
func (s *SortedRun) SstsFromKey(key []byte) []sstable.Handle {
	idx, ok := s.indexOfSSTWithKey(key).Get()
	if ok {
		return s.SSTList[idx:]
	}
	return s.SSTList
}

func (s *SortedRun) Clone() *SortedRun {
	sstList := make([]sstable.Handle, 0, len(s.SSTList))
	for _, sst := range s.SSTList {
		sstList = append(sstList, *sst.Clone())
	}
	return &SortedRun{
		ID:      s.ID,
		SSTList: sstList,
	}
}
