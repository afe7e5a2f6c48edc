package feed

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SampleSync/internal/config"
)

// Journal appends published sample envelopes to an on-disk gob stream so a
// capture session can later be replayed against the synchronizer.
type Journal struct {
	ch   chan *SampleEnvelope
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewJournal creates the journal directory, opens a timestamped log file
// and starts the background writer.
func NewJournal(cfg config.JournalConfig) (*Journal, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}

	fileName := fmt.Sprintf("samples_%s.gob", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.Create(filepath.Join(cfg.Path, fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}

	j := &Journal{
		ch:   make(chan *SampleEnvelope, bufferSize),
		stop: make(chan struct{}),
	}
	j.wg.Add(1)
	go j.run(file)
	log.Printf("Journaling samples to %s", file.Name())
	return j, nil
}

// Record queues an envelope for journaling. It never blocks the publish
// path: if the buffer is full the envelope is dropped and logged.
func (j *Journal) Record(env *SampleEnvelope) {
	select {
	case j.ch <- env:
	default:
		log.Printf("Journal buffer full, dropping sample from source '%s'", env.SourceID)
	}
}

// Close stops the writer and flushes the log file.
func (j *Journal) Close() {
	close(j.stop)
	j.wg.Wait()
}

func (j *Journal) run(file *os.File) {
	defer j.wg.Done()
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	encoder := gob.NewEncoder(writer)
	for {
		select {
		case env := <-j.ch:
			if err := encoder.Encode(env); err != nil {
				log.Printf("Journal: failed to encode sample: %v", err)
			}
		case <-j.stop:
			// Drain whatever is still buffered before closing the file.
			for {
				select {
				case env := <-j.ch:
					if err := encoder.Encode(env); err != nil {
						log.Printf("Journal: failed to encode sample: %v", err)
					}
				default:
					return
				}
			}
		}
	}
}
