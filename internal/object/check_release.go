//go:build !debug

package object

import "github.com/gviegas/pepper/pepperlog"

// checkNotDestroyed implements the release-build half of the invariant
// check: log and best-effort continue, per SPEC_FULL.md §7.
func checkNotDestroyed(k Kind) {
	pepperlog.Logger().Error("invariant violation", "err", errDoubleDestroy(k))
}
