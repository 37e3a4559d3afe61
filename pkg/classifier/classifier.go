// Package classifier maps raw workflow signals onto the issue taxonomy. It
// performs no I/O.
package classifier

import (
	"regexp"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

type rule struct {
	issueType models.IssueType
	patterns  []*regexp.Regexp
}

func patterns(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+expr))
	}

	return compiled
}

// rules is evaluated top to bottom and the first match wins. Order matters:
// an expired OAuth token usually also carries a 401, so credential patterns
// must be checked before generic auth patterns.
var rules = []rule{
	{
		issueType: models.IssueTypeCredentialExpired,
		patterns: patterns(
			`credentials?\s+(has|have)?\s*expired`,
			`(access|refresh|oauth|auth)?\s*token\s+(has\s+|is\s+)?expired`,
			`expired\s+(access\s+|refresh\s+|oauth\s+)?token`,
			`refresh\s+token\s+(is\s+)?(invalid|revoked|expired)`,
			`invalid_grant`,
			`credentials?\s+(not\s+found|missing|could\s+not\s+be\s+found)`,
			`no\s+credentials?\s+(found|set|configured)`,
			`node\s+does\s+not\s+have\s+any\s+credentials`,
		),
	},
	{
		issueType: models.IssueTypeHMACSignatureMismatch,
		patterns: patterns(
			`hmac`,
			`signature\s+(mismatch|verification\s+failed|is\s+invalid|does\s+not\s+match)`,
			`invalid\s+signature`,
			`webhook\s+signature`,
		),
	},
	{
		issueType: models.IssueTypeAuthFailure,
		patterns: patterns(
			`\b401\b`,
			`\b403\b`,
			`unauthori[sz]ed`,
			`forbidden`,
			`invalid\s+api[\s_-]?key`,
			`api[\s_-]?key\s+(is\s+)?invalid`,
			`authentication\s+(failed|required|error)`,
			`access\s+denied`,
			`permission\s+denied`,
		),
	},
	{
		issueType: models.IssueTypeRateLimit,
		patterns: patterns(
			`\b429\b`,
			`rate.?limit`,
			`too\s+many\s+requests`,
			`quota\s+exceeded`,
			`throttl`,
		),
	},
	{
		issueType: models.IssueTypeNetworkTimeout,
		patterns: patterns(
			`time[sd]?\s?out`,
			`etimedout`,
			`esockettimedout`,
			`econnreset`,
			`econnrefused`,
			`econnaborted`,
			`eai_again`,
			`enotfound`,
			`socket\s+hang\s+up`,
			`\b50[234]\b`,
			`bad\s+gateway`,
			`service\s+unavailable`,
			`network\s+(error|failure|unreachable)`,
			`dns`,
			`connection\s+(reset|refused|closed|failed)`,
		),
	},
}

// ClassifyError returns the first issue type whose patterns match message,
// or UNKNOWN.
func ClassifyError(message string) models.IssueType {
	if message == "" {
		return models.IssueTypeUnknown
	}

	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(message) {
				return r.issueType
			}
		}
	}

	return models.IssueTypeUnknown
}

// IsRetryable reports whether automated corrective action may be attempted
// for the issue type. Credential and signature problems never self-heal.
func IsRetryable(issueType models.IssueType) bool {
	switch issueType {
	case models.IssueTypeRateLimit,
		models.IssueTypeNetworkTimeout,
		models.IssueTypeStaleExecution,
		models.IssueTypeWorkflowInactive,
		models.IssueTypeUnknown:
		return true
	default:
		return false
	}
}
