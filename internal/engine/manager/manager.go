package manager

import (
	"fmt"
	"log"
	"sync"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/model"
)

// BatchPublisher publishes an emitted batch to downstream consumers.
type BatchPublisher interface {
	PublishBatch(batch synchronizer.Batch[float64]) error
}

// Manager drives the synchronizer: it polls Tick on a ticker faster than
// the update interval and fans every emitted batch out to the configured
// writers and the batch publisher. The synchronizer itself enforces the
// emission cadence, so polls between emissions are cheap no-ops.
type Manager struct {
	core         *synchronizer.Synchronizer[float64]
	writers      []model.Writer
	publisher    BatchPublisher // may be nil when no transport is configured
	pollInterval time.Duration

	mu        sync.Mutex
	lastBatch synchronizer.Batch[float64]
	lastEmit  time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Manager around an existing synchronizer.
func New(cfg *config.Config, core *synchronizer.Synchronizer[float64], writers []model.Writer, publisher BatchPublisher) (*Manager, error) {
	poll, err := time.ParseDuration(cfg.Synchronizer.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid poll_interval: %w", err)
	}
	if poll <= 0 {
		return nil, fmt.Errorf("poll_interval must be a positive duration")
	}

	return &Manager{
		core:         core,
		writers:      writers,
		publisher:    publisher,
		pollInterval: poll,
		done:         make(chan struct{}),
	}, nil
}

// Ingest forwards one sample to the synchronizer.
func (m *Manager) Ingest(sourceID string, value float64) {
	m.core.Ingest(sourceID, value)
}

// Activate enables the synchronizer.
func (m *Manager) Activate() { m.core.Activate() }

// Deactivate disables the synchronizer. Histories are kept.
func (m *Manager) Deactivate() { m.core.Deactivate() }

// Stats returns the synchronizer's counters.
func (m *Manager) Stats() synchronizer.Stats { return m.core.Stats() }

// LatestBatch returns the most recently emitted batch, its emission time,
// and whether any batch has been emitted yet.
func (m *Manager) LatestBatch() (synchronizer.Batch[float64], time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBatch, m.lastEmit, m.lastBatch != nil
}

// Start launches the polling goroutine.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.runPoller()
	log.Printf("Manager started, polling synchronizer every %s.", m.pollInterval)
}

// Stop shuts down the polling loop and waits for any in-flight emission.
func (m *Manager) Stop() {
	close(m.done)
	m.wg.Wait()
	log.Println("Manager stopped.")
}

func (m *Manager) runPoller() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if batch, ok := m.core.Tick(); ok {
				m.emit(batch)
			}
		case <-m.done:
			return
		}
	}
}

// emit records the batch and fans it out to all writers concurrently, then
// publishes it for the downstream processing unit.
func (m *Manager) emit(batch synchronizer.Batch[float64]) {
	now := time.Now()
	timestamp := now.Format("2006-01-02_15-04-05")

	m.mu.Lock()
	m.lastBatch = batch
	m.lastEmit = now
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(m.writers))
	for _, writer := range m.writers {
		go func(w model.Writer) {
			defer wg.Done()
			if err := w.Write(batch, timestamp); err != nil {
				log.Printf("Error writing batch: %v", err)
			}
		}(writer)
	}

	if m.publisher != nil {
		if err := m.publisher.PublishBatch(batch); err != nil {
			log.Printf("Error publishing batch: %v", err)
		}
	}

	wg.Wait()
	log.Printf("Emitted aligned batch covering %d sources at %s.", len(batch), timestamp)
}
