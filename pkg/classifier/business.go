package classifier

import (
	"strings"
)

// GlobalBusiness owns every workflow that matches no convention.
const GlobalBusiness = "global"

// BusinessRule maps naming conventions to a business id. Keywords are
// matched case-insensitively as substrings of the workflow name.
type BusinessRule struct {
	Business string   `yaml:"business" json:"business" validate:"required"`
	Keywords []string `yaml:"keywords" json:"keywords" validate:"required,min=1,dive,required"`
}

// BusinessRules is an ordered convention table; the first match wins.
type BusinessRules []BusinessRule

// DefaultBusinessRules is the naming convention used across the fleet.
var DefaultBusinessRules = BusinessRules{
	{Business: "boo", Keywords: []string{"boo", "bigcommerce", "buy organics"}},
	{Business: "teelixir", Keywords: []string{"teelixir", "tlx"}},
	{Business: "elevate", Keywords: []string{"elevate"}},
	{Business: "rhf", Keywords: []string{"rhf", "red hill"}},
}

// DetectBusiness resolves the owning business with the default conventions.
func DetectBusiness(workflowName string, tags []string) string {
	return DefaultBusinessRules.Detect(workflowName, tags)
}

// Detect resolves the owning business. An explicit "business:<id>" tag wins,
// then a tag equal to a known business id, then name keywords. It never
// fails; unmatched workflows belong to "global".
func (rules BusinessRules) Detect(workflowName string, tags []string) string {
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if id, ok := strings.CutPrefix(tag, "business:"); ok && id != "" {
			return id
		}
	}

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		for _, r := range rules {
			if tag == strings.ToLower(r.Business) {
				return r.Business
			}
		}
	}

	name := strings.ToLower(workflowName)
	for _, r := range rules {
		for _, keyword := range r.Keywords {
			if keyword != "" && strings.Contains(name, strings.ToLower(keyword)) {
				return r.Business
			}
		}
	}

	return GlobalBusiness
}
