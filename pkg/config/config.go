// Package config loads the resolver thresholds file and derives the effective
// per-business configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/growthcohq/workflow-healer/pkg/classifier"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for any structural or semantic config problem.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON string

// Backoff configures the L0 retry delay curve.
type Backoff struct {
	Initial    time.Duration `yaml:"initial" validate:"gt=0"`
	Max        time.Duration `yaml:"max" validate:"gtefield=Initial"`
	Multiplier float64       `yaml:"multiplier" validate:"gte=1"`
	Jitter     float64       `yaml:"jitter" validate:"gte=0,lte=1"`
}

// ErrorRate configures the elevated error-rate signal.
type ErrorRate struct {
	MinSamples int     `yaml:"minSamples" validate:"gte=1"`
	Threshold  float64 `yaml:"threshold" validate:"gt=0,lte=1"`
}

// BusinessOverride replaces or extends the global thresholds for one business.
type BusinessOverride struct {
	MaxRetries            *int               `yaml:"maxRetries" validate:"omitempty,gte=0,lte=10"`
	OccurrenceCeiling     *int               `yaml:"occurrenceCeiling" validate:"omitempty,gte=1"`
	UnknownCeiling        *int               `yaml:"unknownCeiling" validate:"omitempty,gte=1"`
	ExpectedIntervalHours map[string]float64 `yaml:"expectedIntervalHours" validate:"omitempty,dive,keys,required,endkeys,gt=0"`
	CriticalWorkflowNames []string           `yaml:"criticalWorkflowNames" validate:"omitempty,dive,required"`
}

// Config is the thresholds file.
type Config struct {
	Lookback             time.Duration `yaml:"lookback" validate:"gt=0"`
	HistoryWindow        time.Duration `yaml:"historyWindow" validate:"gt=0"`
	Budget               time.Duration `yaml:"budget" validate:"gt=0"`
	DetectionConcurrency int           `yaml:"detectionConcurrency" validate:"gte=1,lte=16"`
	MaxIssuesPerRun      int           `yaml:"maxIssuesPerRun" validate:"gte=1"`

	MaxRetries        int           `yaml:"maxRetries" validate:"gte=0,lte=10"`
	Backoff           Backoff       `yaml:"backoff"`
	RateLimitDelay    time.Duration `yaml:"rateLimitDelay" validate:"gte=0"`
	OccurrenceCeiling int           `yaml:"occurrenceCeiling" validate:"gte=1"`
	UnknownCeiling    int           `yaml:"unknownCeiling" validate:"gte=1"`
	ErrorRate         ErrorRate     `yaml:"errorRate"`

	ExpectedIntervalHours map[string]float64 `yaml:"expectedIntervalHours" validate:"omitempty,dive,keys,required,endkeys,gt=0"`
	CriticalWorkflowNames []string           `yaml:"criticalWorkflowNames" validate:"omitempty,dive,required"`

	BusinessRules classifier.BusinessRules    `yaml:"businessRules" validate:"omitempty,dive"`
	Businesses    map[string]BusinessOverride `yaml:"businesses" validate:"omitempty,dive,keys,required,endkeys"`
}

// Default returns the built-in thresholds.
func Default() Config {
	return Config{
		Lookback:             24 * time.Hour,
		HistoryWindow:        7 * 24 * time.Hour,
		Budget:               10 * time.Minute,
		DetectionConcurrency: 4,
		MaxIssuesPerRun:      100,
		MaxRetries:           3,
		Backoff: Backoff{
			Initial:    time.Second,
			Max:        30 * time.Second,
			Multiplier: 2,
			Jitter:     0.2,
		},
		RateLimitDelay:    5 * time.Second,
		OccurrenceCeiling: 3,
		UnknownCeiling:    5,
		ErrorRate: ErrorRate{
			MinSamples: 5,
			Threshold:  0.25,
		},
		BusinessRules: classifier.DefaultBusinessRules,
	}
}

// Load reads a thresholds file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse checks data against the embedded schema, overlays it onto the
// defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if document != nil {
		if err := validateSchema(document); err != nil {
			return Config{}, err
		}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateSchema(document map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// Validate applies the struct-tag rules.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}

			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}

		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// KnownBusinesses returns the sorted ids that have a convention rule or an
// override, without "global".
func (c Config) KnownBusinesses() []string {
	seen := make(map[string]bool)

	var ids []string

	for _, r := range c.BusinessRules {
		if !seen[r.Business] {
			seen[r.Business] = true
			ids = append(ids, r.Business)
		}
	}

	for id := range c.Businesses {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

// ResolverConfig is the effective configuration for one business.
type ResolverConfig struct {
	Business              string
	ExpectedIntervalHours map[string]float64
	MaxRetries            int
	Backoff               Backoff
	RateLimitDelay        time.Duration
	CriticalWorkflowNames []string
	OccurrenceCeiling     int
	UnknownCeiling        int
}

// ForBusiness merges the override for business over the global values.
// Interval patterns and critical names from the override extend the global
// ones; scalar overrides replace them.
func (c Config) ForBusiness(business string) ResolverConfig {
	rc := ResolverConfig{
		Business:              business,
		ExpectedIntervalHours: make(map[string]float64, len(c.ExpectedIntervalHours)),
		MaxRetries:            c.MaxRetries,
		Backoff:               c.Backoff,
		RateLimitDelay:        c.RateLimitDelay,
		CriticalWorkflowNames: append([]string(nil), c.CriticalWorkflowNames...),
		OccurrenceCeiling:     c.OccurrenceCeiling,
		UnknownCeiling:        c.UnknownCeiling,
	}

	for pattern, hours := range c.ExpectedIntervalHours {
		rc.ExpectedIntervalHours[pattern] = hours
	}

	override, ok := c.Businesses[business]
	if !ok {
		return rc
	}

	if override.MaxRetries != nil {
		rc.MaxRetries = *override.MaxRetries
	}

	if override.OccurrenceCeiling != nil {
		rc.OccurrenceCeiling = *override.OccurrenceCeiling
	}

	if override.UnknownCeiling != nil {
		rc.UnknownCeiling = *override.UnknownCeiling
	}

	for pattern, hours := range override.ExpectedIntervalHours {
		rc.ExpectedIntervalHours[pattern] = hours
	}

	rc.CriticalWorkflowNames = append(rc.CriticalWorkflowNames, override.CriticalWorkflowNames...)

	return rc
}

// ExpectedInterval returns the expected run interval for a workflow name.
func (rc ResolverConfig) ExpectedInterval(workflowName string) float64 {
	return classifier.ExpectedIntervalHours(workflowName, rc.ExpectedIntervalHours)
}

// IsCritical reports whether the workflow id or name matches a critical
// workflow pattern.
func (rc ResolverConfig) IsCritical(workflowID, workflowName string) bool {
	for _, pattern := range rc.CriticalWorkflowNames {
		if workflowID != "" && classifier.MatchName(pattern, workflowID) {
			return true
		}

		if workflowName != "" && classifier.MatchName(pattern, workflowName) {
			return true
		}
	}

	return false
}

// Thresholds builds the severity thresholds for a workflow.
func (rc ResolverConfig) Thresholds(workflowName string, inactive bool) classifier.Thresholds {
	return classifier.Thresholds{
		ExpectedIntervalHours: rc.ExpectedInterval(workflowName),
		Inactive:              inactive,
		OccurrenceCeiling:     rc.OccurrenceCeiling,
		UnknownCeiling:        rc.UnknownCeiling,
	}
}
