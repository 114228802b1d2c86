// Package decompose implements the request decomposer (spec.md §4.5,
// component C5): translating a resolver grouping into per-endpoint
// sub-request descriptors, choosing GET vs POST and splitting oversize
// batches.
package decompose

// Limits configures the decomposer's chunking thresholds. spec.md §9 leaves
// the exact ceiling as an Open Question ("adopt a configurable ceiling with
// a documented default, e.g. 100 KB, 500 epochs") — resolved here with
// those defaults, both operator-configurable.
type Limits struct {
	// MaxEpochsPerRequest: beyond this many epochs for one endpoint, the
	// decomposer splits the list into multiple sub-requests. (Any chunk of
	// more than one epoch is sent as POST regardless of this limit.)
	MaxEpochsPerRequest int
	// MaxBodyBytes bounds the encoded POST body size of a single
	// sub-request, guarding against upstream POST size limits.
	MaxBodyBytes int
}

// DefaultLimits are the documented defaults from spec.md §9.
var DefaultLimits = Limits{MaxEpochsPerRequest: 500, MaxBodyBytes: 100 * 1024}
