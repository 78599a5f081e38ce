//go:build debug

package object

import "github.com/gviegas/pepper/pepperlog"

// checkNotDestroyed implements the debug-build half of the invariant
// check described in SPEC_FULL.md §7: a double Destroy is logged and
// then aborts the process, rather than being tolerated.
func checkNotDestroyed(k Kind) {
	err := errDoubleDestroy(k)
	pepperlog.Logger().Error("invariant violation", "err", err)
	panic(err)
}
