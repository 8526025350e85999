package usecase_test

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Driver packages may start background goroutines at init; only goroutines
	// started by the tests themselves count as leaks.
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}
