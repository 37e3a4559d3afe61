package classifier

import (
	"testing"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    models.IssueType
	}{
		{name: "empty message", message: "", want: models.IssueTypeUnknown},
		{name: "expired oauth token", message: "The access token has expired", want: models.IssueTypeCredentialExpired},
		{name: "invalid grant", message: "400 Bad Request: invalid_grant", want: models.IssueTypeCredentialExpired},
		{name: "credential expiry wins over 401", message: "401 Unauthorized - token expired", want: models.IssueTypeCredentialExpired},
		{name: "missing credentials", message: "Node does not have any credentials set", want: models.IssueTypeCredentialExpired},
		{name: "hmac mismatch", message: "HMAC validation failed for webhook", want: models.IssueTypeHMACSignatureMismatch},
		{name: "signature wins over 401", message: "401: signature does not match", want: models.IssueTypeHMACSignatureMismatch},
		{name: "invalid api key", message: "401 Unauthorized: invalid api key", want: models.IssueTypeAuthFailure},
		{name: "forbidden", message: "Request failed with status code 403", want: models.IssueTypeAuthFailure},
		{name: "rate limited", message: "429 Too Many Requests", want: models.IssueTypeRateLimit},
		{name: "rate limit words", message: "Shopify API rate limit reached", want: models.IssueTypeRateLimit},
		{name: "timeout", message: "ETIMEDOUT connecting to api.unleashedsoftware.com", want: models.IssueTypeNetworkTimeout},
		{name: "timed out", message: "The operation timed out", want: models.IssueTypeNetworkTimeout},
		{name: "dns failure", message: "getaddrinfo EAI_AGAIN hubspot.com", want: models.IssueTypeNetworkTimeout},
		{name: "bad gateway", message: "502 Bad Gateway", want: models.IssueTypeNetworkTimeout},
		{name: "unrecognised", message: "Cannot read properties of undefined (reading 'sku')", want: models.IssueTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.message))
		})
	}
}

func TestCredentialExpiryIsAlwaysCritical(t *testing.T) {
	messages := []string{
		"token expired",
		"Refresh token is revoked",
		"credentials have expired for Xero",
		"OAuth token has expired, please reconnect",
	}

	for _, message := range messages {
		issueType := ClassifyError(message)
		assert.Equal(t, models.IssueTypeCredentialExpired, issueType, message)

		for _, count := range []int{0, 1, 5, 100} {
			severity := CalculateSeverity(issueType, count, 0, Thresholds{OccurrenceCeiling: 3, UnknownCeiling: 5})
			assert.Equal(t, models.SeverityCritical, severity, "count=%d", count)
		}
	}
}

func TestCalculateSeverity(t *testing.T) {
	th := Thresholds{ExpectedIntervalHours: 25, OccurrenceCeiling: 3, UnknownCeiling: 5}

	tests := []struct {
		name       string
		issueType  models.IssueType
		count      int
		hoursStale float64
		thresholds Thresholds
		want       models.Severity
	}{
		{name: "auth always critical", issueType: models.IssueTypeAuthFailure, count: 1, thresholds: th, want: models.SeverityCritical},
		{name: "hmac always critical", issueType: models.IssueTypeHMACSignatureMismatch, count: 1, thresholds: th, want: models.SeverityCritical},
		{name: "stale ratio 1.2", issueType: models.IssueTypeStaleExecution, hoursStale: 30, thresholds: th, want: models.SeverityMedium},
		{name: "stale ratio 2 is medium", issueType: models.IssueTypeStaleExecution, hoursStale: 50, thresholds: th, want: models.SeverityMedium},
		{name: "stale ratio 3", issueType: models.IssueTypeStaleExecution, hoursStale: 75, thresholds: th, want: models.SeverityHigh},
		{name: "stale ratio 4 is high", issueType: models.IssueTypeStaleExecution, hoursStale: 100, thresholds: th, want: models.SeverityHigh},
		{name: "stale ratio 5", issueType: models.IssueTypeStaleExecution, hoursStale: 125, thresholds: th, want: models.SeverityCritical},
		{
			name:       "stale and inactive",
			issueType:  models.IssueTypeStaleExecution,
			hoursStale: 30,
			thresholds: Thresholds{ExpectedIntervalHours: 25, Inactive: true},
			want:       models.SeverityCritical,
		},
		{name: "rate limit under ceiling", issueType: models.IssueTypeRateLimit, count: 3, thresholds: th, want: models.SeverityLow},
		{name: "rate limit over ceiling", issueType: models.IssueTypeRateLimit, count: 4, thresholds: th, want: models.SeverityMedium},
		{name: "timeout over ceiling", issueType: models.IssueTypeNetworkTimeout, count: 10, thresholds: th, want: models.SeverityMedium},
		{name: "inactive workflow", issueType: models.IssueTypeWorkflowInactive, thresholds: th, want: models.SeverityHigh},
		{name: "unknown under ceiling", issueType: models.IssueTypeUnknown, count: 5, thresholds: th, want: models.SeverityMedium},
		{name: "unknown over ceiling", issueType: models.IssueTypeUnknown, count: 6, thresholds: th, want: models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateSeverity(tt.issueType, tt.count, tt.hoursStale, tt.thresholds))
		})
	}
}

func TestIsStale(t *testing.T) {
	assert.False(t, IsStale(25, 25))
	assert.False(t, IsStale(10, 25))
	assert.True(t, IsStale(30, 25))
	assert.True(t, IsStale(27, 0), "falls back to the daily default")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(models.IssueTypeRateLimit))
	assert.True(t, IsRetryable(models.IssueTypeStaleExecution))
	assert.False(t, IsRetryable(models.IssueTypeAuthFailure))
	assert.False(t, IsRetryable(models.IssueTypeCredentialExpired))
	assert.False(t, IsRetryable(models.IssueTypeHMACSignatureMismatch))
}
