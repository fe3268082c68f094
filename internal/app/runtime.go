package app

import (
	"os"
	"sync"
)

// TestModeEnv is set by the test harness so binaries skip network side effects.
const TestModeEnv = "STOCK_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     bool
)

// InTestMode reports whether the process runs under the test harness.
// The environment is read once.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv(TestModeEnv) == "1"
	})
	return testMode
}
