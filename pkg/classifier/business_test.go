package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBusiness(t *testing.T) {
	tests := []struct {
		name     string
		workflow string
		tags     []string
		want     string
	}{
		{name: "boo by name", workflow: "BOO - BigCommerce order sync", want: "boo"},
		{name: "teelixir short code", workflow: "TLX daily-stock-update", want: "teelixir"},
		{name: "red hill", workflow: "Red Hill Fresh delivery export", want: "rhf"},
		{name: "elevate", workflow: "elevate-wholesale-prospecting-daily", want: "elevate"},
		{name: "explicit tag wins over name", workflow: "Teelixir sync", tags: []string{"business:boo"}, want: "boo"},
		{name: "tag equal to business id", workflow: "inventory sync", tags: []string{"prod", "RHF"}, want: "rhf"},
		{name: "unmatched falls back to global", workflow: "n8n backup", want: GlobalBusiness},
		{name: "empty name", workflow: "", want: GlobalBusiness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBusiness(tt.workflow, tt.tags))
		})
	}
}

func TestBusinessRules_CustomTable(t *testing.T) {
	rules := BusinessRules{{Business: "acme", Keywords: []string{"acme"}}}

	assert.Equal(t, "acme", rules.Detect("ACME nightly export", nil))
	assert.Equal(t, GlobalBusiness, rules.Detect("BOO order sync", nil))
}

func TestExpectedIntervalHours(t *testing.T) {
	configured := map[string]float64{
		"*order-sync*":      1,
		"boo*order-sync*":   3,
		"exact-name-weekly": 12,
	}

	assert.InDelta(t, 3, ExpectedIntervalHours("BOO BigCommerce order-sync", configured), 0.0001, "longest pattern wins")
	assert.InDelta(t, 1, ExpectedIntervalHours("teelixir order-sync", configured), 0.0001)
	assert.InDelta(t, 12, ExpectedIntervalHours("exact-name-weekly", configured), 0.0001)
	assert.InDelta(t, 0.5, ExpectedIntervalHours("shopify-health-check", nil), 0.0001)
	assert.InDelta(t, 2, ExpectedIntervalHours("stock-sync-hourly", nil), 0.0001)
	assert.InDelta(t, 5, ExpectedIntervalHours("price-update-4h", nil), 0.0001)
	assert.InDelta(t, 8, ExpectedIntervalHours("gmc-feed-6h", nil), 0.0001)
	assert.InDelta(t, 26, ExpectedIntervalHours("Daily Sales Report", nil), 0.0001)
	assert.InDelta(t, 170, ExpectedIntervalHours("weekly-seo-audit", nil), 0.0001)
	assert.InDelta(t, DefaultExpectedIntervalHours, ExpectedIntervalHours("mystery", nil), 0.0001)
}
