// Package errors provides enhanced error messages with suggestions.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, s := range e.Suggestions {
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if e.HelpCommand != "" {
		b.WriteString("\nRun '")
		b.WriteString(e.HelpCommand)
		b.WriteString("' for more information.")
	}

	return b.String()
}

// UnknownSinkError creates an error for when a sink URI uses an unregistered scheme.
func UnknownSinkError(scheme string, available []string) error {
	similar := findSimilar(scheme, available, 3)
	if len(similar) == 0 {
		sorted := append([]string(nil), available...)
		sort.Strings(sorted)
		similar = sorted
	}
	return &SuggestiveError{
		Message:     fmt.Sprintf("unknown sink scheme %q", scheme),
		Suggestions: similar,
		HelpCommand: "wssrelay run --help",
	}
}

// InvalidTimeError creates an error for invalid time format.
func InvalidTimeError(input string) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("invalid time format %q", input),
		Suggestions: []string{
			"Epoch millis: 1592222400000",
			"Compact UTC:  20200615120000",
			"RFC3339:      2020-06-15T12:00:00Z",
			"Relative:     90m, 2h, 7d (that long ago)",
		},
	}
}

// MissingCredentialsError creates an error for when API credentials are not configured.
func MissingCredentialsError() error {
	return &SuggestiveError{
		Message: "API credentials are not configured",
		Suggestions: []string{
			"Set server.username and server.password in ~/.wssrelay.yaml",
			"Or export WSSRELAY_SERVER_USERNAME and WSSRELAY_SERVER_PASSWORD",
			"Run 'wssrelay init' to create a starter config",
		},
	}
}

// findSimilar finds strings similar to target using Levenshtein distance.
func findSimilar(target string, candidates []string, maxDistance int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	targetLower := strings.ToLower(target)

	for _, c := range candidates {
		cLower := strings.ToLower(c)
		d := levenshtein(targetLower, cLower)
		if d <= maxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	// Sort by distance (closest first)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	// Return top 3
	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].value)
	}

	return result
}

// levenshtein calculates the Levenshtein distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create matrix
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	// Initialize first column
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}

	// Initialize first row
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	// Fill matrix
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

func min(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
