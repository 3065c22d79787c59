// Package policy loads operator-controlled gate configuration from a YAML
// file: extra sensitive-field fragments for the log sanitizer and
// column-level masks for query results.
package policy

import (
	"github.com/guillermoBallester/causeway/internal/core/domain"
)

// Policy holds the operator-controlled parts of the gate's behavior.
//
//	sanitizer:
//	  fields: [session_key, otp]
//	masks:
//	  columns:
//	    email: partial
//	    ssn: redact
type Policy struct {
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Masks     MaskConfig      `yaml:"masks"`
}

// SanitizerConfig adds field-name fragments to the sanitizer's built-in
// sensitive set.
type SanitizerConfig struct {
	Fields []string `yaml:"fields"`
}

// MaskConfig maps column names to masking strategies.
type MaskConfig struct {
	Columns map[string]domain.MaskType `yaml:"columns"`
}

// ColumnMasks returns the column-name to mask-type map, nil when no masks
// are configured.
func (p *Policy) ColumnMasks() map[string]domain.MaskType {
	if p == nil || len(p.Masks.Columns) == 0 {
		return nil
	}
	return p.Masks.Columns
}
