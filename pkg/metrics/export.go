package metrics

import "github.com/bytedance/sonic"

// EncodeJSON marshals a Snapshot (or AggregateResult) to the JSON form
// written to metrics_<timestamp>.json and carried inside a metrics
// snapshot's wire payload.
func EncodeJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// DecodeSnapshotJSON unmarshals a previously encoded Snapshot.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
