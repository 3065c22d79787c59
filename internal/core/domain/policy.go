package domain

// PolicyContext is an immutable snapshot of the ambient write policy for one
// validation call. It is constructed at the system boundary and threaded as a
// plain value; nothing re-reads configuration mid-validation.
type PolicyContext struct {
	ReadOnly      bool
	AdminOverride bool
}

// DefaultPolicy is the fail-safe posture: writes blocked, no override.
func DefaultPolicy() PolicyContext {
	return PolicyContext{ReadOnly: true, AdminOverride: false}
}

// AllowsWrites reports whether destructive statements may execute under this
// policy. When ReadOnly is false every operation class is permitted, the
// override flag is irrelevant.
func (p PolicyContext) AllowsWrites() bool {
	return !p.ReadOnly || p.AdminOverride
}

// OverrideOnly reports whether writes are admitted solely because of the
// admin override. Callers use this to demand an explicit confirmation step
// before executing.
func (p PolicyContext) OverrideOnly() bool {
	return p.ReadOnly && p.AdminOverride
}
