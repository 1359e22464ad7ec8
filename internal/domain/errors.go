package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrChainConflict     = errors.New("domain: chain conflict")
	ErrInvalidTransition = errors.New("domain: invalid state transition")
	ErrInvalidReference  = errors.New("domain: reference belongs to another aggregate")
	ErrTooManyItems      = errors.New("domain: too many items")
)

// Policy reason codes. Machine-readable; carried verbatim to API clients.
const (
	PolicyNotExtendable        = "not_extendable"
	PolicyMaxExtensionsReached = "max_extensions_reached"
	PolicyEndNotAfterCurrent   = "end_not_after_current"
	PolicyExtensionTooLong     = "extension_exceeds_limit"
)

// PolicyError reports a business-rule guard failure on an otherwise legal
// transition. Reason is one of the Policy* codes.
type PolicyError struct {
	Reason string
	Detail string
}

func (e *PolicyError) Error() string {
	if e.Detail == "" {
		return "domain: policy violation: " + e.Reason
	}
	return fmt.Sprintf("domain: policy violation: %s: %s", e.Reason, e.Detail)
}

// ValidationError reports malformed caller input, keyed by field.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s: %s", e.Field, e.Detail)
}
