package splitkit

// FNV-1a 32-bit constants. These are a wire-level contract shared with
// any other implementation computing assignments for the same
// experiments; do not change them.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Hash computes the 32-bit FNV-1a hash of identity + ":" + experimentID.
//
// The key format (separator and order included) is part of the
// assignment contract: a visitor's bucket must be reproducible by any
// process, in any language, from the identity token and experiment ID
// alone. FNV-1a is chosen for speed and cross-platform determinism,
// not for adversarial resistance: anyone who knows the hash and an
// identity can predict that identity's assignments, which is
// acceptable here.
func Hash(identity, experimentID string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(identity); i++ {
		h ^= uint32(identity[i])
		h *= fnvPrime32
	}
	h ^= uint32(':')
	h *= fnvPrime32
	for i := 0; i < len(experimentID); i++ {
		h ^= uint32(experimentID[i])
		h *= fnvPrime32
	}
	return h
}

// Assign maps an identity to a variant index using weighted buckets.
//
// The hash is reduced modulo the total weight (never a hardcoded 100:
// weights are relative, and a config whose weights sum to 90 or 110
// still splits proportionally), then walked against the cumulative
// weights in order. The result is always in [0, len(weights)) for a
// valid weight vector.
//
// Assign is a pure function with no shared state: the same
// (identity, experimentID, weights) yields the same index across
// processes, restarts, and concurrent callers, which is why sticky
// assignment needs no persistence layer at all.
//
// Invalid input (empty weights, non-positive total) returns 0, the
// control index. Registries reject such configs at load time, so this
// path only protects callers bypassing validation.
func Assign(identity, experimentID string, weights []int) int {
	if len(weights) == 0 {
		return 0
	}
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	bucket := Hash(identity, experimentID) % uint32(total)

	sum := uint32(0)
	for i, w := range weights {
		if w > 0 {
			sum += uint32(w)
		}
		if sum > bucket {
			return i
		}
	}
	// Unreachable when total is the sum of the weights.
	return len(weights) - 1
}

// AssignUniform maps an identity to one of variantCount equally likely
// variants: hash mod variantCount, with no weight walk.
//
// It computes the same hash routine as Assign and is exactly
// equivalent to Assign with a weight vector of all 1s. Migrating an
// experiment from uniform to weighted assignment therefore needs no
// new infrastructure, though non-unit weights will reshuffle visitors.
//
// A non-positive variantCount returns 0.
func AssignUniform(identity, experimentID string, variantCount int) int {
	if variantCount <= 0 {
		return 0
	}
	return int(Hash(identity, experimentID) % uint32(variantCount))
}
