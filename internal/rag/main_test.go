package rag

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for the whole package.
// The keyed session lock must never leave goroutines parked.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
