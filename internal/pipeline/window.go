package pipeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

// Window holds the recent detections that clusters are computed over.
// Detections are deduplicated by ID and expire after the retention period,
// measured from acquisition time (or arrival time when that is unknown).
type Window struct {
	retention time.Duration
	clock     clockwork.Clock

	mu      sync.RWMutex
	entries []windowEntry
	index   map[string]int
}

type windowEntry struct {
	det       domain.FireDetection
	arrivedAt time.Time
}

// NewWindow creates an empty window. A nil clock uses the real clock.
func NewWindow(retention time.Duration, clock clockwork.Clock) *Window {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Window{
		retention: retention,
		clock:     clock,
		index:     make(map[string]int),
	}
}

// Add inserts new detections and replaces existing ones with the same ID.
// It returns how many were new.
func (w *Window) Add(dets []domain.FireDetection) int {
	now := w.clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	added := 0
	for _, d := range dets {
		if i, ok := w.index[d.ID]; ok {
			w.entries[i].det = d
			continue
		}
		w.index[d.ID] = len(w.entries)
		w.entries = append(w.entries, windowEntry{det: d, arrivedAt: now})
		added++
	}
	return added
}

// Prune drops expired detections and returns how many were removed.
func (w *Window) Prune() int {
	cutoff := w.clock.Now().Add(-w.retention)
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.entries[:0]
	for _, e := range w.entries {
		seen := e.det.AcquiredAt()
		if seen.IsZero() {
			seen = e.arrivedAt
		}
		if seen.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(w.entries) - len(kept)
	if removed == 0 {
		return 0
	}

	clear(w.entries[len(kept):])
	w.entries = kept
	w.index = make(map[string]int, len(kept))
	for i, e := range kept {
		w.index[e.det.ID] = i
	}
	return removed
}

// Snapshot returns a copy of the current detections in arrival order.
func (w *Window) Snapshot() []domain.FireDetection {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.FireDetection, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.det
	}
	return out
}

// Len returns the number of detections held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
