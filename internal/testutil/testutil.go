// Package testutil provides shared skip helpers and assertions for tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when
// the named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    weights := testutil.RequireWeights(t)
//	    inputs := testutil.RequireInputs(t)
//	    ...
//	}
package testutil

import (
	"os"
	"testing"
)

// Environment variables naming real model assets for integration tests.
const (
	WeightsEnv = "WAVERNN_TEST_WEIGHTS"
	InputsEnv  = "WAVERNN_TEST_INPUTS"
)

// RequireWeights skips the test unless WAVERNN_TEST_WEIGHTS names an
// existing weights file, and returns its path.
func RequireWeights(tb testing.TB) string {
	tb.Helper()

	return requirePath(tb, WeightsEnv, "weights file")
}

// RequireInputs skips the test unless WAVERNN_TEST_INPUTS names an existing
// conditioning directory or bundle, and returns its path.
func RequireInputs(tb testing.TB) string {
	tb.Helper()

	return requirePath(tb, InputsEnv, "conditioning inputs")
}

func requirePath(tb testing.TB, env, what string) string {
	tb.Helper()

	p := os.Getenv(env)
	if p == "" {
		tb.Skipf("%s not configured; set %s", what, env)
		return ""
	}

	if _, err := os.Stat(p); err != nil {
		tb.Skipf("%s not found at %s=%q", what, env, p)
		return ""
	}

	return p
}
