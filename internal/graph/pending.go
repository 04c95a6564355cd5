package graph

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/google/uuid"

	rpgerr "rpg/internal/errors"
	"rpg/internal/paths"
)

// PendingReason records why an entity entered the pending-routing queue.
type PendingReason string

const (
	// PendingBorderline: drift in [ignore, auto] — agent may keep or re-route.
	PendingBorderline PendingReason = "borderline"
	// PendingAuto: drift above the auto threshold — re-route is mandatory.
	PendingAuto PendingReason = "auto"
	// PendingInsert: freshly inserted entity awaiting its first placement.
	PendingInsert PendingReason = "insert"
	// PendingSubmit: features diverged from the current node's aggregate.
	PendingSubmit PendingReason = "submit"
)

// PendingEntry is one record on the disk-persisted pending-routing queue.
type PendingEntry struct {
	ID       string        `json:"id"`
	EntityID string        `json:"entityId"`
	Reason   PendingReason `json:"reason"`
	Drift    float64       `json:"drift,omitempty"`
	// Revision is the graph_revision at queuing time; decisions carrying an
	// older revision are rejected as stale.
	Revision   int64    `json:"revision"`
	Candidates []string `json:"candidates,omitempty"`
}

// NewPendingEntry creates an entry stamped with the given revision.
func NewPendingEntry(entityID string, reason PendingReason, drift float64, revision int64) PendingEntry {
	return PendingEntry{
		ID:       uuid.NewString(),
		EntityID: entityID,
		Reason:   reason,
		Drift:    drift,
		Revision: revision,
	}
}

// PendingQueue is the serialized form of .rpg/pending_routing.json.
type PendingQueue struct {
	// Revision is the graph_revision current when the queue was last written.
	Revision int64          `json:"revision"`
	Entries  []PendingEntry `json:"entries"`
}

// Upsert appends an entry, replacing any prior entry for the same entity.
func (q *PendingQueue) Upsert(entry PendingEntry) {
	for i, e := range q.Entries {
		if e.EntityID == entry.EntityID {
			q.Entries[i] = entry
			return
		}
	}
	q.Entries = append(q.Entries, entry)
}

// Remove drops the entry for an entity, reporting whether one existed.
func (q *PendingQueue) Remove(entityID string) bool {
	for i, e := range q.Entries {
		if e.EntityID == entityID {
			q.Entries = append(q.Entries[:i], q.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the entry for an entity, or nil.
func (q *PendingQueue) Find(entityID string) *PendingEntry {
	for i := range q.Entries {
		if q.Entries[i].EntityID == entityID {
			return &q.Entries[i]
		}
	}
	return nil
}

// Save writes the queue atomically with entries sorted by entity id.
func (q *PendingQueue) Save(repoRoot string) error {
	if _, err := paths.EnsureRpgDir(repoRoot); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to create .rpg directory", err)
	}
	sort.Slice(q.Entries, func(i, j int) bool {
		return q.Entries[i].EntityID < q.Entries[j].EntityID
	})
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return rpgerr.Wrap(rpgerr.InternalError, "failed to serialize pending queue", err)
	}
	return WriteFileAtomic(paths.PendingRoutingFile(repoRoot), append(data, '\n'))
}

// LoadPending reads the pending queue; a missing file yields an empty queue.
func LoadPending(repoRoot string) (*PendingQueue, error) {
	raw, err := os.ReadFile(paths.PendingRoutingFile(repoRoot))
	if os.IsNotExist(err) {
		return &PendingQueue{}, nil
	}
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to read pending_routing.json", err)
	}
	var q PendingQueue
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "pending_routing.json is not valid JSON", err)
	}
	return &q, nil
}
