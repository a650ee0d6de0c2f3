//go:build !unix

package backend

import "context"

// ChildPID is unavailable on this platform.
func ChildPID(context.Context, int) (int, error) {
	return 0, ErrChildLookupUnsupported
}
