package alerter

import (
	"strings"
	"testing"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/engine/synchronizer"
)

// fakeSource serves a scripted sequence of batches.
type fakeSource struct {
	batch     synchronizer.Batch[float64]
	emittedAt time.Time
	ok        bool
}

func (s *fakeSource) LatestBatch() (synchronizer.Batch[float64], time.Time, bool) {
	return s.batch, s.emittedAt, s.ok
}

// fakeNotifier captures sent notifications.
type fakeNotifier struct {
	subjects []string
	bodies   []string
}

func (n *fakeNotifier) Send(subject, body string) error {
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func staleBatch() synchronizer.Batch[float64] {
	return synchronizer.Batch[float64]{
		"s1": {
			Kind:    synchronizer.StaleFallback,
			Samples: []synchronizer.Sample[float64]{{Timestamp: time.Now(), Value: 1}},
		},
	}
}

func newTestAlerter(t *testing.T, rules []config.AlerterRule, source BatchSource, notifier *fakeNotifier) *Alerter {
	t.Helper()
	cfg := &config.AlerterConfig{Enabled: true, CheckInterval: "10s", Rules: rules}
	a, err := NewAlerter(cfg, source, notifier)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}
	return a
}

func TestAlerterTriggersAfterConsecutiveStaleEmissions(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{}
	rules := []config.AlerterRule{{Name: "s1-stale", SourceID: "s1", Condition: "stale", Consecutive: 2}}
	a := newTestAlerter(t, rules, source, notifier)

	// 1. First stale emission: streak is 1, below the threshold.
	source.batch = staleBatch()
	source.emittedAt = time.Now()
	source.ok = true
	a.evaluate()
	if len(notifier.subjects) != 0 {
		t.Fatalf("Alert fired after a single stale emission, expected threshold of 2")
	}

	// 2. Second consecutive stale emission: the rule fires.
	source.emittedAt = source.emittedAt.Add(5 * time.Second)
	a.evaluate()
	if len(notifier.subjects) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifier.subjects))
	}
	if !strings.Contains(notifier.bodies[0], "s1-stale") {
		t.Errorf("Notification body does not mention the rule: %s", notifier.bodies[0])
	}
}

func TestAlerterResetsStreakOnFreshData(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{}
	rules := []config.AlerterRule{{Name: "any-degraded", SourceID: "*", Condition: "degraded", Consecutive: 2}}
	a := newTestAlerter(t, rules, source, notifier)

	source.batch = staleBatch()
	source.emittedAt = time.Now()
	source.ok = true
	a.evaluate()

	// Fresh data arrives: the streak must reset.
	source.batch = synchronizer.Batch[float64]{
		"s1": {
			Kind:    synchronizer.Windowed,
			Samples: []synchronizer.Sample[float64]{{Timestamp: time.Now(), Value: 2}},
		},
	}
	source.emittedAt = source.emittedAt.Add(5 * time.Second)
	a.evaluate()

	// Stale again: streak restarts at 1, still below 2.
	source.batch = staleBatch()
	source.emittedAt = source.emittedAt.Add(5 * time.Second)
	a.evaluate()

	if len(notifier.subjects) != 0 {
		t.Errorf("Expected no notification after a streak reset, got %d", len(notifier.subjects))
	}
}

func TestAlerterIgnoresRepeatedEmission(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{}
	rules := []config.AlerterRule{{Name: "s1-stale", SourceID: "s1", Condition: "stale", Consecutive: 1}}
	a := newTestAlerter(t, rules, source, notifier)

	source.batch = staleBatch()
	source.emittedAt = time.Now()
	source.ok = true
	a.evaluate()
	if len(notifier.subjects) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifier.subjects))
	}

	// Same emission evaluated again must not double-count the streak or
	// re-send the alert.
	a.evaluate()
	if len(notifier.subjects) != 1 {
		t.Errorf("Alert re-fired for an already-evaluated emission")
	}
}

func TestAlerterNoDataCondition(t *testing.T) {
	source := &fakeSource{}
	notifier := &fakeNotifier{}
	rules := []config.AlerterRule{{Name: "silent-source", SourceID: "*", Condition: "no_data", Consecutive: 1}}
	a := newTestAlerter(t, rules, source, notifier)

	source.batch = synchronizer.Batch[float64]{
		"ghost": {Kind: synchronizer.NoData},
	}
	source.emittedAt = time.Now()
	source.ok = true
	a.evaluate()

	if len(notifier.subjects) != 1 {
		t.Fatalf("Expected the no_data rule to fire, got %d notifications", len(notifier.subjects))
	}
	if !strings.Contains(notifier.bodies[0], "ghost") {
		t.Errorf("Notification body does not mention the silent source: %s", notifier.bodies[0])
	}
}
