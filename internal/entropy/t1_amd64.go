//go:build amd64

package entropy

// clearFlagsFast zeroes a T1Flags slice via the clear builtin, which the
// Go compiler lowers to a wide SIMD-backed memclr on amd64.
func clearFlagsFast(flags []T1Flags) {
	clear(flags)
}

// useSIMD indicates this build relies on the compiler's amd64 memclr
// lowering of the clear builtin rather than a scalar loop.
const useSIMD = true
