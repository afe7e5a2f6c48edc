package replay

import (
	"bufio"
	"encoding/gob"
	"errors"
	"io"
	"log"
	"os"

	"SampleSync/internal/feed"
)

// Reader reads sample envelopes from a journal file.
type Reader struct {
	file *os.File
	dec  *gob.Decoder
}

// NewReader opens a journal file written by the feed journal.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file: file,
		dec:  gob.NewDecoder(bufio.NewReader(file)),
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

// ReadSamples decodes all envelopes from the journal and sends them to the
// provided channel. It closes the channel when the journal is exhausted.
func (r *Reader) ReadSamples(out chan<- *feed.SampleEnvelope) {
	defer close(out)
	for {
		var env feed.SampleEnvelope
		if err := r.dec.Decode(&env); err != nil {
			if !errors.Is(err, io.EOF) {
				// A torn tail is expected when a capture was interrupted.
				log.Printf("Error decoding journal entry: %v", err)
			}
			return
		}
		out <- &env
	}
}
