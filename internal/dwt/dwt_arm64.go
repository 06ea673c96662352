//go:build arm64

package dwt

// useSIMD indicates this build routes Forward53Fast through the
// wide-unrolled unroll-by-8 lifting pass rather than Forward53's
// unroll-by-4 pass.
const useSIMD = true

// Forward53Fast performs the forward 5-3 transform using an 8-wide
// unrolled lifting pass, sized for arm64's 128-bit NEON registers
// processed two at a time even though the arithmetic itself stays scalar
// Go.
func Forward53Fast(data []int32, length int) {
	forward53Wide8(data, length)
}

// clearInt32SliceFast zeroes a slice via the clear builtin, which the Go
// compiler lowers to a NEON-backed memclr on arm64.
func clearInt32SliceFast(data []int32) {
	clear(data)
}
