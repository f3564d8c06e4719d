package config

// HostMode selects how a node resolves the address it advertises to peers.
type HostMode string

const (
	// HostModePublic resolves the local address of the default outbound route
	// (no packets are sent; a UDP socket is opened and never written to).
	HostModePublic HostMode = "public"
	// HostModeLocal binds to the loopback interface.
	HostModeLocal HostMode = "local"
	// HostModeExplicit uses a caller-supplied address verbatim.
	HostModeExplicit HostMode = "addr"
)

// IsValid reports whether m is a recognized host mode.
func (m HostMode) IsValid() bool {
	switch m {
	case HostModePublic, HostModeLocal, HostModeExplicit:
		return true
	default:
		return false
	}
}

// DatapoolKind selects the storage backing of a Datapool.
type DatapoolKind string

const (
	// DatapoolKindIterable realizes its source into an in-memory random-access
	// sequence at construction.
	DatapoolKindIterable DatapoolKind = "iterable"
	// DatapoolKindFile backs the datapool with a large text file plus a
	// sidecar line-index for O(log n) seeks.
	DatapoolKindFile DatapoolKind = "file"
)

// IsValid reports whether k is a recognized datapool kind.
func (k DatapoolKind) IsValid() bool {
	return k == DatapoolKindIterable || k == DatapoolKindFile
}
