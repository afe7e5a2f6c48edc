package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"SampleSync/internal/engine/synchronizer"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// SampleEnvelope is the wire form of one reading published by a probe.
// There is deliberately no timestamp on the wire: the synchronizer stamps
// samples at ingestion time, never from caller-supplied clocks.
type SampleEnvelope struct {
	SourceID string
	Value    float64
}

// Marshal serializes the envelope as a protobuf Struct.
func (e *SampleEnvelope) Marshal() ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]interface{}{
		"source_id": e.SourceID,
		"value":     e.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build sample envelope: %w", err)
	}
	return proto.Marshal(payload)
}

// UnmarshalSample decodes a wire-format sample envelope.
func UnmarshalSample(data []byte) (*SampleEnvelope, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample envelope: %w", err)
	}
	fields := payload.GetFields()
	sourceID := fields["source_id"].GetStringValue()
	if sourceID == "" {
		return nil, fmt.Errorf("sample envelope is missing source_id")
	}
	return &SampleEnvelope{
		SourceID: sourceID,
		Value:    fields["value"].GetNumberValue(),
	}, nil
}

// BatchWire renders an emitted batch in the pair shape the downstream
// processing unit consumes: source -> [[timestamp, value], ...]. A source
// with no history at all is rendered as a single [null, null] pair, which
// consumers must read as "no data ever received", not as a sample.
func BatchWire(batch synchronizer.Batch[float64]) ([]byte, error) {
	wire := make(map[string][][2]interface{}, len(batch))
	for id, series := range batch {
		if series.Kind == synchronizer.NoData {
			wire[id] = [][2]interface{}{{nil, nil}}
			continue
		}
		pairs := make([][2]interface{}, len(series.Samples))
		for i, sample := range series.Samples {
			pairs[i] = [2]interface{}{sample.Timestamp.UTC().Format(time.RFC3339Nano), sample.Value}
		}
		wire[id] = pairs
	}
	return json.Marshal(wire)
}
