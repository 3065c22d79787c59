// Package policy resolves the ambient write policy into an explicit
// domain.PolicyContext snapshot, once per validation call.
package policy

import (
	"os"
	"strconv"

	"github.com/guillermoBallester/causeway/internal/core/domain"
)

// Environment variable names for the ambient flags.
const (
	EnvReadOnly      = "READ_ONLY"
	EnvAdminOverride = "ADMIN_OVERRIDE"
)

// EnvResolver reads the ambient flags from the process environment on every
// Resolve call. Deliberately uncached: the gate re-validates SQL immediately
// before execution, and a flag toggled between approval and execution must be
// honored.
type EnvResolver struct{}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

// Resolve returns a fresh snapshot. Absent or unparseable values fall back to
// the fail-safe default: read-only enforced, no override.
func (r *EnvResolver) Resolve() domain.PolicyContext {
	p := domain.DefaultPolicy()
	if v, err := strconv.ParseBool(os.Getenv(EnvReadOnly)); err == nil {
		p.ReadOnly = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvAdminOverride)); err == nil {
		p.AdminOverride = v
	}
	return p
}

// StaticResolver returns the same snapshot on every call. Used by tests and
// by callers that already hold an explicit policy.
type StaticResolver struct {
	Policy domain.PolicyContext
}

func (r StaticResolver) Resolve() domain.PolicyContext {
	return r.Policy
}
