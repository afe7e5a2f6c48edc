package model

// Writer defines a generic interface for persisting an emitted batch to a store.
type Writer interface {
	// Write takes a batch payload and persists it. The implementation is
	// expected to know how to handle the payload type it receives.
	Write(payload interface{}, timestamp string) error
}
