// Package wire implements the compact binary wire schema for gossiping an
// LWW-Element-Set between nodes: msgpack encoding, zstd compression, and
// mandatory receive-side schema validation.
//
// Non-goal: schema evolution. Versioning is out of scope; all peers must
// run compatible builds of this package.
package wire

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ryan-h265/ironswarm/pkg/crdt"
)

// payload is the exact wire shape: two maps, each element's value a flat
// metadata map that always carries "timestamp".
type payload struct {
	AddSet    map[string]map[string]any `msgpack:"add_set"`
	RemoveSet map[string]map[string]any `msgpack:"remove_set"`
}

// Encode packs set into msgpack, compresses it with zstd at the given
// level, and rejects the result outright if it would exceed MaxMessageSize
// on the wire.
func Encode(set *crdt.LWWElementSet, level int) ([]byte, error) {
	p := toPayload(set)

	packed, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	compressed, err := compress(packed, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if len(compressed) > MaxMessageSize {
		return nil, fmt.Errorf("%w: message size %d exceeds max %d", ErrSerialization, len(compressed), MaxMessageSize)
	}
	return compressed, nil
}

// Decode validates the wire size, decompresses, strictly validates the
// decoded schema, and only then builds an LWWElementSet. A message that
// fails validation at any step is never merged; callers should reply with
// an empty payload per the dealer/router protocol and drop it.
func Decode(data []byte) (*crdt.LWWElementSet, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: message size %d exceeds max %d", ErrValidation, len(data), MaxMessageSize)
	}

	packed, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	var raw map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(packed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := requireExactKeys(raw, "add_set", "remove_set"); err != nil {
		return nil, err
	}

	var p payload
	if err := msgpack.Unmarshal(packed, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if err := validatePayload(&p); err != nil {
		return nil, err
	}

	return fromPayload(&p), nil
}

func requireExactKeys(raw map[string]msgpack.RawMessage, keys ...string) error {
	if len(raw) != len(keys) {
		return NewValidationError("root", fmt.Errorf("%w: expected exactly %v, got %d keys", ErrValidation, keys, len(raw)))
	}
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			return NewValidationError("root", fmt.Errorf("%w: missing required key %q", ErrValidation, k))
		}
	}
	return nil
}

func toPayload(set *crdt.LWWElementSet) *payload {
	add := set.AddSetSnapshot()
	remove := set.RemoveSetSnapshot()

	p := &payload{
		AddSet:    make(map[string]map[string]any, len(add)),
		RemoveSet: make(map[string]map[string]any, len(remove)),
	}
	for k, v := range add {
		p.AddSet[k] = entryToMap(v)
	}
	for k, v := range remove {
		p.RemoveSet[k] = entryToMap(v)
	}
	return p
}

func entryToMap(e crdt.Entry) map[string]any {
	out := make(map[string]any, len(e.Extras)+1)
	for k, v := range e.Extras {
		out[k] = v
	}
	out["timestamp"] = e.Timestamp
	return out
}

func fromPayload(p *payload) *crdt.LWWElementSet {
	add := make(map[string]crdt.Entry, len(p.AddSet))
	for k, v := range p.AddSet {
		add[k] = mapToEntry(v)
	}
	remove := make(map[string]crdt.Entry, len(p.RemoveSet))
	for k, v := range p.RemoveSet {
		remove[k] = mapToEntry(v)
	}
	return crdt.FromSnapshots(add, remove)
}

func mapToEntry(m map[string]any) crdt.Entry {
	ts, _ := asFloat64(m["timestamp"])
	extras := make(crdt.Metadata, len(m))
	for k, v := range m {
		if k == "timestamp" {
			continue
		}
		extras[k] = v
	}
	return crdt.Entry{Timestamp: ts, Extras: extras}
}

func compress(data []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// zstdLevel maps the config's integer compression_level (0 = unset) onto
// zstd's named speed/ratio tiers.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level == 1:
		return zstd.SpeedFastest
	case level >= 3:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedBetterCompression
	}
}
