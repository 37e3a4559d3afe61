package classifier

import (
	"sort"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

type suffixInterval struct {
	markers []string
	hours   float64
}

// suffixIntervals derives the schedule from workflow naming conventions.
var suffixIntervals = []suffixInterval{
	{markers: []string{"health-check", "-5min", "-15min"}, hours: 0.5},
	{markers: []string{"-hourly", "every-hour"}, hours: 2},
	{markers: []string{"-4h", "4-hour"}, hours: 5},
	{markers: []string{"-6h", "6-hour"}, hours: 8},
	{markers: []string{"daily"}, hours: 26},
	{markers: []string{"weekly"}, hours: 170},
}

// ExpectedIntervalHours returns how often a workflow is expected to succeed.
// Configured wildcard patterns are tried first, most specific (longest)
// pattern first; then naming conventions; then the daily default.
func ExpectedIntervalHours(workflowName string, configured map[string]float64) float64 {
	name := strings.ToLower(workflowName)

	if len(configured) > 0 {
		keys := make([]string, 0, len(configured))
		for pattern := range configured {
			keys = append(keys, pattern)
		}

		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}

			return keys[i] < keys[j]
		})

		for _, pattern := range keys {
			if MatchName(pattern, name) {
				return configured[pattern]
			}
		}
	}

	for _, s := range suffixIntervals {
		for _, marker := range s.markers {
			if strings.Contains(name, marker) {
				return s.hours
			}
		}
	}

	return DefaultExpectedIntervalHours
}

// MatchName matches a workflow name or id against a case-insensitive
// wildcard pattern ("*" and "?"). A pattern without wildcards must match the
// whole value.
func MatchName(pattern, value string) bool {
	return wildcard.Match(strings.ToLower(pattern), strings.ToLower(value))
}
