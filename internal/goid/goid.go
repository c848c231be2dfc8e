// Package goid resolves the id of the calling goroutine.
//
// The runtime does not expose goroutine ids on purpose; the only stable
// way to read one without cgo or linkname tricks is to parse the first
// line of the goroutine's stack dump ("goroutine 123 [running]:").
// That costs a few hundred nanoseconds, which is fine for the cold
// paths this package serves (lifecycle calls, not per-task dispatch).
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// ID returns the id of the calling goroutine.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, prefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		// The stack header format is stable across every released
		// runtime; reaching this means the buffer was truncated.
		return 0
	}
	return id
}
