package basalt

import "github.com/prometheus/client_golang/prometheus"

// Stats holds the DB's runtime counters on a per-DB registry so two open
// DBs in one process never collide on registration.
type Stats struct {
	registry *prometheus.Registry

	ImmutableMemtableFlushes prometheus.Counter
	WalFlushes               prometheus.Counter
	ManifestWriteConflicts   prometheus.Counter
}

func newStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		ImmutableMemtableFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basalt",
			Name:      "immutable_memtable_flushes",
			Help:      "Number of immutable memtables flushed to L0.",
		}),
		WalFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basalt",
			Name:      "wal_flushes",
			Help:      "Number of immutable WALs flushed to the object store.",
		}),
		ManifestWriteConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basalt",
			Name:      "manifest_write_conflicts",
			Help:      "Number of manifest writes retried after losing a version race.",
		}),
	}
	s.registry.MustRegister(s.ImmutableMemtableFlushes, s.WalFlushes, s.ManifestWriteConflicts)
	return s
}

// Registry exposes the counters for scraping by the embedding application.
func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}
