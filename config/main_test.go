package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain refuses to run the config tests outside GO_ENV=test. Load reads
// .env.<GO_ENV>, so any other environment could pick up real credentials.
func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current GO_ENV=%q).\n"+
			"Run them with: make test\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
