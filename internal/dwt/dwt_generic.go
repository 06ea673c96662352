//go:build !amd64 && !arm64

package dwt

// useSIMD indicates this build has no architecture-tuned strip width to
// prefer, so Forward53Fast just reuses Forward53's unroll-by-4 pass.
const useSIMD = false

// Forward53Fast falls back to Forward53 on architectures this package
// does not special-case a wider unroll stride for.
func Forward53Fast(data []int32, length int) {
	Forward53(data, length)
}

// clearInt32SliceFast zeroes a slice via the clear builtin.
func clearInt32SliceFast(data []int32) {
	clear(data)
}
