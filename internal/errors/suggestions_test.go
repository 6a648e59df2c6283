package errors

import (
	"strings"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "a", 1},
		{"abc", "abc", 0},
		{"abc", "ab", 1},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"syslog", "sylog", 1},
		{"cloudwatch", "cloudwach", 1},
	}

	for _, tc := range tests {
		got := levenshtein(tc.a, tc.b)
		if got != tc.expected {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"syslog", "cloudwatch", "amqp", "stdout", "discard"}

	tests := []struct {
		target      string
		maxDistance int
		wantAny     []string
	}{
		{"sylog", 2, []string{"syslog"}},
		{"cloudwach", 2, []string{"cloudwatch"}},
		{"amq", 2, []string{"amqp"}},
	}

	for _, tc := range tests {
		got := findSimilar(tc.target, candidates, tc.maxDistance)
		for _, want := range tc.wantAny {
			found := false
			for _, g := range got {
				if g == want {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("findSimilar(%q, maxDist=%d) = %v, expected to contain %q",
					tc.target, tc.maxDistance, got, want)
			}
		}
	}
}

func TestUnknownSinkError(t *testing.T) {
	available := []string{"syslog", "cloudwatch", "amqp", "stdout", "discard"}
	err := UnknownSinkError("sylog", available)

	errStr := err.Error()
	if !strings.Contains(errStr, "sylog") {
		t.Errorf("error should contain the bad scheme: %s", errStr)
	}
	if !strings.Contains(errStr, "syslog") {
		t.Errorf("error should suggest similar scheme: %s", errStr)
	}
	if !strings.Contains(errStr, "wssrelay run --help") {
		t.Errorf("error should suggest help command: %s", errStr)
	}
}

func TestUnknownSinkErrorNoSimilar(t *testing.T) {
	available := []string{"syslog", "cloudwatch"}
	err := UnknownSinkError("zzzzzz", available)

	errStr := err.Error()
	if !strings.Contains(errStr, "syslog") || !strings.Contains(errStr, "cloudwatch") {
		t.Errorf("error should list all schemes when nothing is similar: %s", errStr)
	}
}

func TestInvalidTimeError(t *testing.T) {
	err := InvalidTimeError("yesterday")
	errStr := err.Error()

	if !strings.Contains(errStr, "yesterday") {
		t.Errorf("error should contain the bad input: %s", errStr)
	}
	if !strings.Contains(errStr, "RFC3339") {
		t.Errorf("error should mention RFC3339 format: %s", errStr)
	}
}

func TestMissingCredentialsError(t *testing.T) {
	err := MissingCredentialsError()
	errStr := err.Error()

	if !strings.Contains(errStr, "credentials") {
		t.Errorf("error should mention credentials: %s", errStr)
	}
	if !strings.Contains(errStr, "wssrelay init") {
		t.Errorf("error should suggest init command: %s", errStr)
	}
}
