package store

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/samber/mo"
	"github.com/thanos-io/objstore"
	"go.uber.org/zap"

	"github.com/basaltdb/basalt-go/basalt/common"
	"github.com/basaltdb/basalt-go/basalt/logger"
	"github.com/basaltdb/basalt-go/basalt/state"
	"github.com/basaltdb/basalt-go/internal"
)

// Manifest is a persisted snapshot of the catalog plus the epochs of the two
// writer roles. Epochs are bumped once per DB-open and fence out displaced
// writers.
type Manifest struct {
	Core           *state.CoreStateSnapshot
	WriterEpoch    *atomic.Uint64
	CompactorEpoch *atomic.Uint64
}

func newManifest(core *state.CoreStateSnapshot) *Manifest {
	return &Manifest{
		Core:           core,
		WriterEpoch:    &atomic.Uint64{},
		CompactorEpoch: &atomic.Uint64{},
	}
}

// clone copies the manifest so an in-flight write never shares epoch cells
// with the cached copy.
func (m *Manifest) clone() *Manifest {
	cloned := newManifest(m.Core.Clone())
	cloned.WriterEpoch.Store(m.WriterEpoch.Load())
	cloned.CompactorEpoch.Store(m.CompactorEpoch.Load())
	return cloned
}

// ------------------------------------------------
// ManifestStore
// ------------------------------------------------

// ManifestStore reads and writes numbered manifest objects. Object `v` is
// written exactly once; versions form a dense monotone sequence from 1.
type ManifestStore struct {
	objectStore    ObjectStore
	codec          ManifestCodec
	manifestsPath  string
	manifestSuffix string
}

func NewManifestStore(rootPath string, bucket objstore.Bucket) *ManifestStore {
	return &ManifestStore{
		objectStore:    newDelegatingObjectStore(rootPath, bucket),
		codec:          FlatBufferManifestCodec{},
		manifestsPath:  "manifest",
		manifestSuffix: ".manifest",
	}
}

func (s *ManifestStore) manifestPath(id uint64) string {
	return path.Join(s.manifestsPath, fmt.Sprintf("%020d%s", id, s.manifestSuffix))
}

// writeManifest creates manifest object id. The create-if-absent write is
// the only synchronization primitive between competing writers.
func (s *ManifestStore) writeManifest(id uint64, manifest *Manifest) error {
	err := s.objectStore.putIfNotExists(s.manifestPath(id), s.codec.Encode(manifest))
	if errors.Is(err, internal.ErrAlreadyExists) {
		return common.ErrManifestVersionExists
	}
	return err
}

func (s *ManifestStore) listManifests() ([]uint64, error) {
	objPaths, err := s.objectStore.list(s.manifestsPath)
	if err != nil {
		return nil, err
	}

	manifestIDs := make([]uint64, 0, len(objPaths))
	for _, objPath := range objPaths {
		if !strings.HasSuffix(objPath, s.manifestSuffix) {
			continue
		}
		base := strings.TrimSuffix(path.Base(objPath), s.manifestSuffix)
		id, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			logger.Warn("invalid manifest object name", zap.String("path", objPath))
			continue
		}
		manifestIDs = append(manifestIDs, id)
	}
	slices.Sort(manifestIDs)
	return manifestIDs, nil
}

func (s *ManifestStore) readManifest(id uint64) (*Manifest, error) {
	data, err := s.objectStore.get(s.manifestPath(id))
	if errors.Is(err, errObjNotFound) {
		return nil, common.ErrManifestMissing(id)
	}
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(data)
}

type manifestInfo struct {
	id       uint64
	manifest *Manifest
}

func (s *ManifestStore) readLatestManifest() (mo.Option[manifestInfo], error) {
	manifestIDs, err := s.listManifests()
	if err != nil {
		return mo.None[manifestInfo](), err
	}
	if len(manifestIDs) == 0 {
		return mo.None[manifestInfo](), nil
	}

	latestID := manifestIDs[len(manifestIDs)-1]
	manifest, err := s.readManifest(latestID)
	if err != nil {
		return mo.None[manifestInfo](), err
	}
	return mo.Some(manifestInfo{id: latestID, manifest: manifest}), nil
}

// ------------------------------------------------
// StoredManifest
// ------------------------------------------------

// StoredManifest tracks the latest manifest this process has read or
// written, along with its version.
type StoredManifest struct {
	id            uint64
	manifest      *Manifest
	manifestStore *ManifestStore
}

// NewStoredManifest bootstraps manifest 1 from a fresh core.
func NewStoredManifest(store *ManifestStore, core *state.CoreStateSnapshot) (*StoredManifest, error) {
	manifest := newManifest(core)
	if err := store.writeManifest(1, manifest); err != nil {
		return nil, err
	}
	return &StoredManifest{id: 1, manifest: manifest, manifestStore: store}, nil
}

// LoadStoredManifest returns the latest stored manifest, or None if the
// store is empty.
func LoadStoredManifest(store *ManifestStore) (mo.Option[StoredManifest], error) {
	info, err := store.readLatestManifest()
	if err != nil {
		return mo.None[StoredManifest](), err
	}
	latest, ok := info.Get()
	if !ok {
		return mo.None[StoredManifest](), nil
	}
	return mo.Some(StoredManifest{
		id:            latest.id,
		manifest:      latest.manifest,
		manifestStore: store,
	}), nil
}

func (s *StoredManifest) ID() uint64 {
	return s.id
}

func (s *StoredManifest) DbState() *state.CoreStateSnapshot {
	return s.manifest.Core
}

// Refresh re-reads the latest manifest from the store and caches it.
func (s *StoredManifest) Refresh() (*state.CoreStateSnapshot, error) {
	info, err := s.manifestStore.readLatestManifest()
	if err != nil {
		return nil, err
	}
	latest, ok := info.Get()
	if !ok {
		return nil, common.ErrLatestManifestMissing
	}
	s.id = latest.id
	s.manifest = latest.manifest
	return s.manifest.Core, nil
}

// UpdateDBState writes a new manifest carrying core at the next version,
// preserving the cached epochs.
func (s *StoredManifest) UpdateDBState(core *state.CoreStateSnapshot) error {
	manifest := s.manifest.clone()
	manifest.Core = core
	return s.updateManifest(manifest)
}

func (s *StoredManifest) updateManifest(manifest *Manifest) error {
	nextID := s.id + 1
	if err := s.manifestStore.writeManifest(nextID, manifest); err != nil {
		return err
	}
	s.id = nextID
	s.manifest = manifest
	return nil
}

// ------------------------------------------------
// FenceableManifest
// ------------------------------------------------

type epochType int

const (
	writerEpoch epochType = iota + 1
	compactorEpoch
)

// FenceableManifest wraps a StoredManifest with an epoch it owns. A process
// that observes a manifest with a greater epoch has been displaced and may
// no longer publish. The wrapper is owned by a single task; no locking.
type FenceableManifest struct {
	stored     *StoredManifest
	localEpoch uint64
	epochType  epochType
	fenced     bool
}

// InitFenceableManifestWriter bumps the writer epoch and claims the next
// manifest version. Construction fails ErrFenced if a newer writer appears
// while claiming.
func InitFenceableManifestWriter(stored *StoredManifest) (*FenceableManifest, error) {
	return initFenceableManifest(stored, writerEpoch)
}

// InitFenceableManifestCompactor is the compactor-role variant.
func InitFenceableManifestCompactor(stored *StoredManifest) (*FenceableManifest, error) {
	return initFenceableManifest(stored, compactorEpoch)
}

func initFenceableManifest(stored *StoredManifest, epochType epochType) (*FenceableManifest, error) {
	f := &FenceableManifest{
		stored:    stored,
		epochType: epochType,
	}
	f.localEpoch = f.storedEpoch() + 1

	for {
		manifest := stored.manifest.clone()
		f.setEpoch(manifest, f.localEpoch)
		err := stored.updateManifest(manifest)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, internal.ErrAlreadyExists) {
			return nil, err
		}

		// Lost the race on this version. Reload: a peer bumping past our
		// epoch means we are fenced; a version conflict from the other
		// role is retried at the new version.
		if _, err := stored.Refresh(); err != nil {
			return nil, err
		}
		if f.storedEpoch() >= f.localEpoch {
			return nil, common.ErrFenced
		}
	}
}

func (f *FenceableManifest) storedEpoch() uint64 {
	if f.epochType == writerEpoch {
		return f.stored.manifest.WriterEpoch.Load()
	}
	return f.stored.manifest.CompactorEpoch.Load()
}

func (f *FenceableManifest) setEpoch(manifest *Manifest, epoch uint64) {
	if f.epochType == writerEpoch {
		manifest.WriterEpoch.Store(epoch)
	} else {
		manifest.CompactorEpoch.Store(epoch)
	}
}

// Refresh reads the latest manifest. Observing a greater epoch fences this
// process permanently.
func (f *FenceableManifest) Refresh() (*state.CoreStateSnapshot, error) {
	core, err := f.stored.Refresh()
	if err != nil {
		return nil, err
	}
	if err := f.checkEpoch(); err != nil {
		return nil, err
	}
	return core, nil
}

// UpdateDBState publishes core at the next version under the local epoch.
// ErrManifestVersionExists surfaces unchanged for the caller's retry loop.
func (f *FenceableManifest) UpdateDBState(core *state.CoreStateSnapshot) error {
	if err := f.checkEpoch(); err != nil {
		return err
	}
	return f.stored.UpdateDBState(core)
}

func (f *FenceableManifest) checkEpoch() error {
	if f.fenced {
		return common.ErrFenced
	}
	stored := f.storedEpoch()
	if stored > f.localEpoch {
		f.fenced = true
		return common.ErrFenced
	}
	if stored < f.localEpoch {
		return common.ErrInvalidDBState
	}
	return nil
}
