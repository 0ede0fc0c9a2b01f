package hardstep

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags a fatal error with the taxonomy from the hard-subsystem's
// error handling design: invariant violations, numerical divergence,
// resource overrun, and I/O truncation. Exactly one kind is fatal per step.
// particle.go's rInEqualWithinRoundoff provides the r_in round-off
// tolerance test; no caller in this package applies a round-off snap.
type ErrorKind int

const (
	InvariantViolation ErrorKind = iota
	EnergyBudgetExceeded
	CapacityExceeded
	PersistenceTruncated
)

func (k ErrorKind) String() string {
	switch k {
	case InvariantViolation:
		return "InvariantViolation"
	case EnergyBudgetExceeded:
		return "EnergyBudgetExceeded"
	case CapacityExceeded:
		return "CapacityExceeded"
	case PersistenceTruncated:
		return "PersistenceTruncated"
	default:
		return "UnknownErrorKind"
	}
}

// HardError is the fatal error type raised by every invariant check,
// divergence check, and capacity check in this package. Reason is a short
// machine-stable tag (e.g. "INV-M", "step-count-max") for dump correlation.
type HardError struct {
	Kind   ErrorKind
	Reason string
	cause  error
}

func (e *HardError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s[%s]", e.Kind, e.Reason)
}

func (e *HardError) Unwrap() error { return e.cause }

func newHardError(kind ErrorKind, reason string, cause error) *HardError {
	return &HardError{Kind: kind, Reason: reason, cause: errors.WithStack(cause)}
}

func invariantViolation(reason string, format string, args ...any) error {
	return newHardError(InvariantViolation, reason, errors.Errorf(format, args...))
}

func energyBudgetExceeded(reason string, format string, args ...any) error {
	return newHardError(EnergyBudgetExceeded, reason, errors.Errorf(format, args...))
}

func capacityExceeded(reason string, format string, args ...any) error {
	return newHardError(CapacityExceeded, reason, errors.Errorf(format, args...))
}

func persistenceTruncated(reason string, wantBytes, gotBytes int) error {
	return newHardError(PersistenceTruncated, reason,
		errors.Errorf("expected %d bytes, got %d", wantBytes, gotBytes))
}

// IsHardError reports whether err (or a wrapped cause) is a HardError of
// the given kind.
func IsHardError(err error, kind ErrorKind) bool {
	var he *HardError
	if errors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}
