package feed

import (
	"log"

	"SampleSync/internal/engine/synchronizer"

	"github.com/nats-io/nats.go"
)

// Publisher publishes samples and emitted batches to NATS.
type Publisher struct {
	nc            *nats.Conn
	sampleSubject string
	batchSubject  string
}

// NewPublisher connects to NATS and returns a publisher for the given subjects.
func NewPublisher(url, sampleSubject, batchSubject string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, sampleSubject: sampleSubject, batchSubject: batchSubject}, nil
}

// PublishSample serializes one sample envelope and publishes it on the
// sample subject.
func (p *Publisher) PublishSample(env *SampleEnvelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return p.nc.Publish(p.sampleSubject, data)
}

// PublishBatch serializes an emitted batch to its wire shape and publishes
// it on the batch subject.
func (p *Publisher) PublishBatch(batch synchronizer.Batch[float64]) error {
	data, err := BatchWire(batch)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.batchSubject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
