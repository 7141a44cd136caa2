package tutil

import (
	"os"
	"strings"
	"testing"
)

// IsIntegrationTest reports whether MC_TEST=integration, which enables tests
// that need a running MySQL server configured through the DB_* variables.
func IsIntegrationTest() bool {
	testType := os.Getenv("MC_TEST")
	return strings.ToLower(testType) == "integration"
}

func SkipUnlessIntegrationTest(t testing.TB) {
	t.Helper()
	if !IsIntegrationTest() {
		t.Skip("Skipping integration test, set MC_TEST=integration to run")
	}
}
