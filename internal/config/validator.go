package config

import (
	"fmt"
	"strings"

	"github.com/harun/sessionkey/pkg/session"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateDMScope validates a DM scope, empty meaning main
func (v *Validator) ValidateDMScope(scope string) error {
	_, err := session.ParseDMScope(scope)
	return err
}

// ValidateAgentID reports ids that will be rewritten by normalization
func (v *Validator) ValidateAgentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("agent id cannot be empty")
	}
	if normalized := session.NormalizeAgentID(id); normalized != strings.ToLower(strings.TrimSpace(id)) {
		return fmt.Errorf("agent id %q is not path-safe and will be used as %q", id, normalized)
	}
	return nil
}

// ValidateIdentityLinks reports aliases claimed by more than one canonical
// name; only the first declaration takes effect.
func (v *Validator) ValidateIdentityLinks(links session.IdentityLinks) []error {
	var errors []error
	owner := make(map[string]string)
	for _, link := range links {
		canonical := strings.TrimSpace(link.Canonical)
		if canonical == "" {
			errors = append(errors, fmt.Errorf("identity link with empty canonical name is ignored"))
			continue
		}
		for _, alias := range link.Aliases {
			normalized := strings.ToLower(strings.TrimSpace(alias))
			if normalized == "" {
				continue
			}
			if prev, ok := owner[normalized]; ok && prev != canonical {
				errors = append(errors, fmt.Errorf("identity alias %q of %s is shadowed by %s", alias, canonical, prev))
				continue
			}
			owner[normalized] = canonical
		}
	}
	return errors
}

// ValidateConfig performs comprehensive validation, reporting every problem
// found rather than stopping at the first.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	for i, agent := range cfg.Agents {
		if err := v.ValidateAgentID(agent.ID); err != nil {
			errors = append(errors, fmt.Errorf("agent %d: %w", i, err))
		}
	}

	errors = append(errors, v.ValidateIdentityLinks(cfg.Session.IdentityLinks)...)

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
