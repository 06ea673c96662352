//go:build !amd64 && !arm64

package entropy

// clearFlagsFast zeroes a T1Flags slice via the clear builtin on
// architectures with no dedicated fast path above.
func clearFlagsFast(flags []T1Flags) {
	clear(flags)
}

// useSIMD indicates this build has no architecture-specific fast path;
// clearFlagsFast still uses the clear builtin, just without an
// amd64/arm64-specific comment to justify it.
const useSIMD = false
