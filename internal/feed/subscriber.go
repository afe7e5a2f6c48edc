package feed

import (
	"log"

	"github.com/nats-io/nats.go"
)

// SampleHandler is a function that processes a received sample envelope.
type SampleHandler func(env *SampleEnvelope)

// Subscriber consumes sample envelopes from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to NATS and returns a subscriber for the sample subject.
func NewSubscriber(url, subject string) (*Subscriber, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start subscribes to the sample subject and hands every decoded envelope
// to the provided handler. Malformed messages are logged and skipped.
func (s *Subscriber) Start(handler SampleHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		env, err := UnmarshalSample(msg.Data)
		if err != nil {
			log.Printf("Error decoding sample envelope: %v", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for samples...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
