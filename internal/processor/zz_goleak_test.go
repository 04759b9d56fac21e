package processor

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies no goroutines leak from finalization tasks after the
// package tests complete.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache runs a janitor goroutine until its finalizer fires
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}
