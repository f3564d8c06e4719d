package wire

// Schema limits enforced on every decode to bound the damage a malformed
// or hostile peer payload can do before it is ever merged into local state.
const (
	// MaxMessageSize is the hard cap on a wire message, checked against the
	// compressed bytes actually placed on the socket.
	MaxMessageSize = 10 * 1024 * 1024
	// MaxCollectionSize bounds the number of entries in either add_set or
	// remove_set.
	MaxCollectionSize = 100_000
	// MaxMetadataKeys bounds the keys in one element's metadata map
	// (including "timestamp").
	MaxMetadataKeys = 50
	// MaxStringLength bounds both element keys and scalar string values.
	MaxStringLength = 10 * 1024
)
