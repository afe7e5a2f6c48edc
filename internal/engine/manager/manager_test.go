package manager

import (
	"sync"
	"testing"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// collectingWriter records every payload it is asked to write.
type collectingWriter struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (w *collectingWriter) Write(payload interface{}, timestamp string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return nil
}

type collectingPublisher struct {
	batches []synchronizer.Batch[float64]
}

func (p *collectingPublisher) PublishBatch(batch synchronizer.Batch[float64]) error {
	p.batches = append(p.batches, batch)
	return nil
}

func newTestManager(t *testing.T, clock *fakeClock, writer *collectingWriter, pub BatchPublisher) *Manager {
	t.Helper()
	core, err := synchronizer.New[float64](5*time.Second, clock)
	if err != nil {
		t.Fatalf("Failed to create synchronizer: %v", err)
	}
	cfg := &config.Config{}
	cfg.Synchronizer.PollInterval = "10ms"
	m, err := New(cfg, core, []model.Writer{writer}, pub)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func TestManagerEmitFansOut(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	writer := &collectingWriter{}
	pub := &collectingPublisher{}
	m := newTestManager(t, clock, writer, pub)

	// 1. Drive the synchronizer to a real emission through the manager.
	m.Activate()
	m.Ingest("s1", 3.14)
	if _, _, ok := m.LatestBatch(); ok {
		t.Fatal("LatestBatch reported a batch before any emission")
	}

	if _, ok := m.core.Tick(); ok {
		t.Fatal("Baseline tick must not emit")
	}
	clock.now = clock.now.Add(6 * time.Second)
	batch, ok := m.core.Tick()
	if !ok {
		t.Fatal("Expected a batch after the interval elapsed")
	}

	// 2. Emit and verify the fan-out.
	m.emit(batch)

	if len(writer.payloads) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(writer.payloads))
	}
	written, ok := writer.payloads[0].(synchronizer.Batch[float64])
	if !ok || len(written) != 1 {
		t.Errorf("Writer received unexpected payload: %+v", writer.payloads[0])
	}
	if len(pub.batches) != 1 {
		t.Fatalf("Expected 1 published batch, got %d", len(pub.batches))
	}

	latest, _, ok := m.LatestBatch()
	if !ok || len(latest) != 1 {
		t.Errorf("LatestBatch does not reflect the emission: %+v", latest)
	}
}

func TestManagerStartStop(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	writer := &collectingWriter{}
	m := newTestManager(t, clock, writer, nil)

	// The poller must start and stop cleanly even when no batch is ever
	// emitted (synchronizer stays inactive).
	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	if len(writer.payloads) != 0 {
		t.Errorf("Expected no writes while inactive, got %d", len(writer.payloads))
	}
}
