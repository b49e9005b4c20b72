package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"contentpilot/internal/parse"
	"contentpilot/internal/pipeline"
)

// Policy is the YAML pipeline policy file. Unset fields keep the value
// already configured.
//
//	timeout: 45s
//	maxRetries: 3
//	retryBaseDelay: 250ms
//	retryMaxDelay: 5s
//	validationRetries: 1
//	briefDefectPolicy: drop
//	demoteEmptyViable: true
//	maxBriefsPerItem: 3
type Policy struct {
	Timeout           string `yaml:"timeout"`
	MaxRetries        *int   `yaml:"maxRetries"`
	RetryBaseDelay    string `yaml:"retryBaseDelay"`
	RetryMaxDelay     string `yaml:"retryMaxDelay"`
	ValidationRetries *int   `yaml:"validationRetries"`
	BriefDefectPolicy string `yaml:"briefDefectPolicy"`
	DemoteEmptyViable *bool  `yaml:"demoteEmptyViable"`
	MaxBriefsPerItem  *int   `yaml:"maxBriefsPerItem"`
}

func LoadPolicyFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("decode policy file: %w", err)
	}
	return p, nil
}

// Apply overlays the set fields onto pc.
func (p Policy) Apply(pc *pipeline.Config) error {
	setDur := func(raw string, dst *time.Duration, name string) error {
		if raw == "" {
			return nil
		}
		d, err := parseDuration(raw, *dst)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}
	if err := setDur(p.Timeout, &pc.Completion.Timeout, "timeout"); err != nil {
		return err
	}
	if err := setDur(p.RetryBaseDelay, &pc.Completion.BaseDelay, "retryBaseDelay"); err != nil {
		return err
	}
	if err := setDur(p.RetryMaxDelay, &pc.Completion.MaxDelay, "retryMaxDelay"); err != nil {
		return err
	}
	if p.MaxRetries != nil {
		if *p.MaxRetries < 0 {
			return fmt.Errorf("maxRetries must not be negative")
		}
		pc.Completion.MaxRetries = *p.MaxRetries
	}
	if p.ValidationRetries != nil {
		if *p.ValidationRetries < 0 {
			return fmt.Errorf("validationRetries must not be negative")
		}
		pc.ValidationRetries = *p.ValidationRetries
	}
	if p.BriefDefectPolicy != "" {
		dp, err := parse.ParseDefectPolicy(p.BriefDefectPolicy)
		if err != nil {
			return err
		}
		pc.Parse.Defects = dp
	}
	if p.DemoteEmptyViable != nil {
		pc.Parse.DemoteEmptyViable = *p.DemoteEmptyViable
	}
	if p.MaxBriefsPerItem != nil {
		if *p.MaxBriefsPerItem < 1 {
			return fmt.Errorf("maxBriefsPerItem must be at least 1")
		}
		pc.Parse.MaxBriefsPerItem = *p.MaxBriefsPerItem
	}
	return nil
}
