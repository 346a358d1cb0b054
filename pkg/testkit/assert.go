package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatus checks the HTTP code and prints the envelope message on
// mismatch.
func AssertStatus(t *testing.T, want int, r Response) bool {
	t.Helper()
	return assert.Equal(t, want, r.Code, "message=%q errors=%v", r.Message, r.Errors)
}

// RequireStatus is AssertStatus that stops the test.
func RequireStatus(t *testing.T, want int, r Response) {
	t.Helper()
	require.Equal(t, want, r.Code, "message=%q errors=%v", r.Message, r.Errors)
}

// AssertJSONData compares the envelope's data with expected JSON after
// decoding both, so key order and whitespace never matter.
func AssertJSONData(t *testing.T, expected string, r Response) bool {
	t.Helper()
	var want, got any
	require.NoError(t, json.Unmarshal([]byte(expected), &want), "expected is not valid JSON")
	require.NoError(t, json.Unmarshal(r.Data, &got), string(r.Raw))
	return assert.Equal(t, want, got)
}
