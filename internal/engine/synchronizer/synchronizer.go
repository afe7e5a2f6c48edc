package synchronizer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"SampleSync/internal/model"
)

// Kind classifies how the aligned series for a source was produced.
type Kind int

const (
	// Windowed means the series is the subset of the source's history that
	// falls inside the trailing window, in original order.
	Windowed Kind = iota
	// StaleFallback means no sample fell inside the window, so the series
	// holds the last known sample. Its timestamp may be arbitrarily old.
	StaleFallback
	// NoData means the source has never produced a sample.
	NoData
)

func (k Kind) String() string {
	switch k {
	case Windowed:
		return "windowed"
	case StaleFallback:
		return "stale_fallback"
	case NoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// Sample is one timestamped reading from a source. Timestamps are assigned
// by the synchronizer at ingestion time, never by the caller.
type Sample[V any] struct {
	Timestamp time.Time
	Value     V
}

// Series is the aligned result for a single source within one emission.
type Series[V any] struct {
	Kind    Kind
	Samples []Sample[V]
}

// Batch maps source identifiers to their aligned series for one emission.
type Batch[V any] map[string]Series[V]

// Stats is a point-in-time view of the synchronizer's state, for status
// reporting.
type Stats struct {
	Active  bool
	Sources int
	Dropped uint64
}

// Synchronizer buffers timestamped samples from independent sources and, no
// more often than once per update interval, emits a time-windowed per-source
// batch. The value type is opaque to the synchronizer.
//
// Histories are never pruned: every ingested sample is retained for the
// lifetime of the process. This matches the intended semantics but makes
// memory grow without bound under sustained ingestion.
type Synchronizer[V any] struct {
	mu       sync.Mutex
	clock    model.Clock
	interval time.Duration

	active      bool
	histories   map[string][]Sample[V]
	lastProcess time.Time
	baselineSet bool
	dropped     uint64
}

// New creates a Synchronizer emitting at most one batch per interval. The
// synchronizer starts inactive. A nil clock defaults to the system clock.
func New[V any](interval time.Duration, clock model.Clock) (*Synchronizer[V], error) {
	if interval <= 0 {
		return nil, fmt.Errorf("update interval must be a positive duration, got %s", interval)
	}
	if clock == nil {
		clock = model.RealClock{}
	}
	return &Synchronizer[V]{
		clock:     clock,
		interval:  interval,
		histories: make(map[string][]Sample[V]),
	}, nil
}

// Activate enables ingestion and emission. Idempotent.
func (s *Synchronizer[V]) Activate() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
}

// Deactivate disables ingestion and emission. Buffered histories are kept,
// so a later Activate resumes with all previously ingested data. Idempotent.
func (s *Synchronizer[V]) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Active reports whether the synchronizer currently accepts samples.
func (s *Synchronizer[V]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Ingest appends a sample to the named source's history, stamping it with
// the current clock reading. While inactive the sample is dropped, counted
// and logged; dropping is a policy outcome, not an error.
func (s *Synchronizer[V]) Ingest(sourceID string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		s.dropped++
		log.Printf("Synchronizer inactive, dropping sample from source '%s' (%d dropped so far).", sourceID, s.dropped)
		return
	}
	s.histories[sourceID] = append(s.histories[sourceID], Sample[V]{
		Timestamp: s.clock.Now(),
		Value:     value,
	})
}

// Tick computes the aligned batch for the trailing window, at most once per
// interval. It is meant to be polled faster than the interval; calls that
// produce no batch return ok=false and are cheap.
//
// The very first Tick after construction only records the baseline time and
// never emits, regardless of how much data is already buffered. While
// inactive, Tick also returns ok=false.
func (s *Synchronizer[V]) Tick() (Batch[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, false
	}

	now := s.clock.Now()
	if !s.baselineSet {
		s.lastProcess = now
		s.baselineSet = true
		return nil, false
	}
	if now.Sub(s.lastProcess) < s.interval {
		return nil, false
	}

	windowStart := now.Add(-s.interval)
	batch := make(Batch[V], len(s.histories))
	for id, history := range s.histories {
		batch[id] = align(history, windowStart)
	}
	s.lastProcess = now
	return batch, true
}

// Stats returns a snapshot of the synchronizer's counters.
func (s *Synchronizer[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Active:  s.active,
		Sources: len(s.histories),
		Dropped: s.dropped,
	}
}

// align selects the aligned series for one source. Histories are
// append-ordered by ingestion time, so the in-window samples always form a
// suffix of the slice. The returned samples are copied so the batch stays
// valid while ingestion keeps appending.
func align[V any](history []Sample[V], windowStart time.Time) Series[V] {
	if len(history) == 0 {
		return Series[V]{Kind: NoData}
	}

	i := len(history)
	for i > 0 && !history[i-1].Timestamp.Before(windowStart) {
		i--
	}
	if i == len(history) {
		// Nothing inside the window; fall back to the last known sample.
		return Series[V]{
			Kind:    StaleFallback,
			Samples: []Sample[V]{history[len(history)-1]},
		}
	}

	windowed := make([]Sample[V], len(history)-i)
	copy(windowed, history[i:])
	return Series[V]{Kind: Windowed, Samples: windowed}
}
