package alerter

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/model"
)

// BatchSource exposes the most recently emitted batch.
type BatchSource interface {
	LatestBatch() (synchronizer.Batch[float64], time.Time, bool)
}

// Alerter evaluates emitted batches against staleness rules and sends a
// consolidated notification when rules fire. A rule fires once a source has
// been degraded (stale fallback or no data) for the configured number of
// consecutive emissions.
type Alerter struct {
	source        BatchSource
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup

	// Evaluation state, touched only from the evaluation loop.
	lastSeen time.Time
	streaks  map[string]int
	lastKind map[string]synchronizer.Kind
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, source BatchSource, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}

	return &Alerter{
		source:        source,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
		streaks:       make(map[string]int),
		lastKind:      make(map[string]synchronizer.Kind),
	}, nil
}

// Start begins the periodic evaluation of staleness rules.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.evaluate()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the alerter's evaluation loop.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.evaluate()
}

// evaluate looks at the latest emission, updates per-source degradation
// streaks, and sends one consolidated notification for all triggered rules.
func (a *Alerter) evaluate() {
	batch, emittedAt, ok := a.source.LatestBatch()
	if !ok || !emittedAt.After(a.lastSeen) {
		return // nothing new since the last evaluation
	}
	a.lastSeen = emittedAt

	for id, series := range batch {
		a.lastKind[id] = series.Kind
		if series.Kind == synchronizer.Windowed {
			delete(a.streaks, id)
		} else {
			a.streaks[id]++
		}
	}

	var triggered []string
	for _, rule := range a.rules {
		for id, streak := range a.streaks {
			if !ruleMatchesSource(rule, id) {
				continue
			}
			if !conditionMatches(rule.Condition, a.lastKind[id]) {
				continue
			}
			needed := rule.Consecutive
			if needed < 1 {
				needed = 1
			}
			if streak < needed {
				continue
			}
			triggered = append(triggered, fmt.Sprintf("<h3>Alert: %s</h3>"+
				"<ul>"+
				"<li><b>Source:</b> <code>%s</code></li>"+
				"<li><b>State:</b> <code>%s</code></li>"+
				"<li><b>Consecutive degraded emissions:</b> <code>%d</code></li>"+
				"<li><b>Last emission:</b> <code>%s</code></li>"+
				"</ul>",
				rule.Name, id, a.lastKind[id], streak, emittedAt.UTC().Format(time.RFC3339)))
		}
	}

	if len(triggered) == 0 {
		return
	}
	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(triggered))

	body := "<h1>SampleSync Alert Summary</h1>" +
		"<p>The following alerts were triggered during the last check:</p><hr>" +
		strings.Join(triggered, "<hr>")

	if a.notifier != nil {
		subject := fmt.Sprintf("SampleSync Alert Summary (%d Triggered)", len(triggered))
		if err := a.notifier.Send(subject, body); err != nil {
			log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
		} else {
			log.Printf("INFO: Consolidated alert notification sent successfully.")
		}
	}
}

func ruleMatchesSource(rule config.AlerterRule, sourceID string) bool {
	return rule.SourceID == "" || rule.SourceID == "*" || rule.SourceID == sourceID
}

func conditionMatches(condition string, kind synchronizer.Kind) bool {
	switch condition {
	case "stale":
		return kind == synchronizer.StaleFallback
	case "no_data":
		return kind == synchronizer.NoData
	case "degraded", "":
		return kind != synchronizer.Windowed
	default:
		log.Printf("Warning: unknown condition '%s' in alerter rule", condition)
		return false
	}
}
