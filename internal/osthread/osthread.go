// Package osthread applies a display name to the calling OS thread.
//
// Naming is best-effort: the kernel interface is not portable, so only
// Linux is wired up and every other platform reports ErrUnsupported.
// Callers are expected to treat failure as a debugging inconvenience,
// not an error.
package osthread

import "errors"

// ErrUnsupported is returned on platforms without a thread-naming syscall.
var ErrUnsupported = errors.New("osthread: naming not supported on this platform")

// MaxNameLen is the longest visible name the kernel accepts.
const MaxNameLen = 15

// SetName names the calling OS thread. The caller should be locked to
// its thread (runtime.LockOSThread), otherwise the name lands on
// whichever thread happens to run the goroutine.
func SetName(name string) error {
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return setName(name)
}
