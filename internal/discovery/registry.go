package discovery

import (
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
)

// Registry tracks time-bounded discovery records. A peer stays known while
// at least one of its records has not been swept.
type Registry struct {
	mu      sync.Mutex
	records map[core.PeerRecord]time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[core.PeerRecord]time.Time)}
}

// Observe records or renews rec until now+ttl and reports whether the record
// is new. Records without a positive ttl are ignored; a departed peer is
// noticed when its last record lapses in Sweep.
func (r *Registry) Observe(rec core.PeerRecord, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.records[rec]
	r.records[rec] = now.Add(ttl)
	return !known
}

// Sweep removes and returns every record whose expiry is not after now.
func (r *Registry) Sweep(now time.Time) []core.PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []core.PeerRecord
	for rec, expires := range r.records {
		if !expires.After(now) {
			expired = append(expired, rec)
			delete(r.records, rec)
		}
	}
	sortRecords(expired)
	return expired
}

// HasPeer reports whether any record for id is still held.
func (r *Registry) HasPeer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for rec := range r.records {
		if rec.ID == id {
			return true
		}
	}
	return false
}

// Peers returns the ids of all known peers, sorted.
func (r *Registry) Peers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	for rec := range r.records {
		seen[rec.ID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortRecords(recs []core.PeerRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ID != recs[j].ID {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Addr < recs[j].Addr
	})
}
