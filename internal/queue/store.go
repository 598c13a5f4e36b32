package queue

import (
	"sort"
	"sync"
	"time"
)

// Key identifies one live counter: a (server, instance) pair.
type Key struct {
	Server   string
	Instance string
}

// Row is one snapshot entry in the wire shape consumers expect.
// LastSeen is the store-wide last update time, not per-row.
type Row struct {
	Server    string    `json:"server"`
	Instances []string  `json:"instances"`
	Queued    int       `json:"queued"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Ranker resolves catalog ordering metadata for an instance id.
// Unknown ids must rank last (catalog.UnknownLevel).
type Ranker interface {
	ItemLevel(id string) int
	Level(id string) int
}

// Store holds the current participant counts for both queue kinds plus
// the cached dungeon sort order. The order and the counter map are only
// ever mutated together, under the same lock, so a reader can never see
// them disagree for longer than its own defensive filter.
type Store struct {
	mu          sync.RWMutex
	counters    [2]map[Key]int
	order       []Key // dungeons only, recomputed after every dungeon mutation
	lastUpdated time.Time
	ranker      Ranker
}

// NewStore creates an empty store ordered by the given ranker.
func NewStore(ranker Ranker) *Store {
	s := &Store{ranker: ranker}
	s.counters[KindDungeons] = make(map[Key]int)
	s.counters[KindBattlegrounds] = make(map[Key]int)
	s.lastUpdated = time.Now()
	return s
}

// Apply adds or removes players from every (server, instance) counter in
// instances. Decrements clamp at zero and zero-count keys are deleted, so
// absence and zero stay equivalent. Instance ids are stored as given;
// unknown ids are legal and surface with degraded display metadata.
func (s *Store) Apply(kind Kind, server string, instances []string, players int, increase bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := s.counters[kind]
	for _, instance := range instances {
		key := Key{Server: server, Instance: instance}
		current := counters[key]

		var next int
		if increase {
			next = current + players
		} else {
			next = current - players
			if next < 0 {
				next = 0
			}
		}

		if next > 0 {
			counters[key] = next
		} else {
			delete(counters, key)
		}
	}

	s.lastUpdated = time.Now()
	if kind == KindDungeons {
		s.recomputeOrder()
	}
}

// recomputeOrder rebuilds the cached dungeon order. Caller holds mu.
// Composite key: gear requirement, then level requirement, then instance
// id, then server, so the order is total and pagination is stable.
func (s *Store) recomputeOrder() {
	counters := s.counters[KindDungeons]
	order := make([]Key, 0, len(counters))
	for key := range counters {
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		ai, bi := s.ranker.ItemLevel(a.Instance), s.ranker.ItemLevel(b.Instance)
		if ai != bi {
			return ai < bi
		}
		al, bl := s.ranker.Level(a.Instance), s.ranker.Level(b.Instance)
		if al != bl {
			return al < bl
		}
		if a.Instance != b.Instance {
			return a.Instance < b.Instance
		}
		return a.Server < b.Server
	})
	s.order = order
}

// Snapshot returns the current rows for one kind. Dungeons follow the
// cached order, skipping any key that has since been deleted; the filter
// is a required safety net for readers racing a concurrent apply.
// Battlegrounds have no catalog ordering contract and are enumerated in a
// stable key order instead.
func (s *Store) Snapshot(kind Kind) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(kind)
}

// SnapshotAll returns both kinds plus the shared last update time, read
// under one lock so concurrent clears can never split the view.
func (s *Store) SnapshotAll() (dungeons, battlegrounds []Row, lastUpdated time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(KindDungeons), s.snapshotLocked(KindBattlegrounds), s.lastUpdated
}

func (s *Store) snapshotLocked(kind Kind) []Row {
	counters := s.counters[kind]
	rows := make([]Row, 0, len(counters))

	if kind == KindDungeons {
		for _, key := range s.order {
			queued, ok := counters[key]
			if !ok {
				continue
			}
			rows = append(rows, s.row(key, queued))
		}
		return rows
	}

	keys := make([]Key, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Server != keys[j].Server {
			return keys[i].Server < keys[j].Server
		}
		return keys[i].Instance < keys[j].Instance
	})
	for _, key := range keys {
		rows = append(rows, s.row(key, counters[key]))
	}
	return rows
}

func (s *Store) row(key Key, queued int) Row {
	return Row{
		Server:    key.Server,
		Instances: []string{key.Instance},
		Queued:    queued,
		LastSeen:  s.lastUpdated,
	}
}

// Live counts the distinct live keys for one server and kind. The
// ingestion handler uses it for admission control; the store itself does
// not enforce a ceiling.
func (s *Store) Live(kind Kind, server string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key := range s.counters[kind] {
		if key.Server == server {
			n++
		}
	}
	return n
}

// Has reports whether a live counter exists for the key.
func (s *Store) Has(kind Kind, server, instance string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.counters[kind][Key{Server: server, Instance: instance}]
	return ok
}

// LastUpdated returns the time of the most recent apply or clear.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Clear wipes both kinds and the cached order in one step.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[KindDungeons] = make(map[Key]int)
	s.counters[KindBattlegrounds] = make(map[Key]int)
	s.order = nil
	s.lastUpdated = time.Now()
}
