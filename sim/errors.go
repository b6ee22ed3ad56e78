package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEntity marks a construction-time failure: a job, operation,
	// machine, workcenter or system that must never reach the engine.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnresolvedWorkcenter marks an operation whose workcenter is absent
	// from the System being scheduled.
	ErrUnresolvedWorkcenter = errors.New("unresolved workcenter")

	// ErrPolicyContract marks a priority policy that returned nothing, or a job
	// outside the eligible set.
	ErrPolicyContract = errors.New("priority policy contract violation")

	// ErrUnknownPolicy is returned when a policy name is not registered.
	ErrUnknownPolicy = errors.New("unknown priority policy")
)

// ValidationError describes a rejected entity construction.
type ValidationError struct {
	Entity string // e.g. `job "J1"` or `workcenter "W1"`
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEntity }

// RoutingError reports the job operation whose workcenter could not be resolved.
type RoutingError struct {
	JobID      string
	Operation  int
	Workcenter string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("job %q operation %d: workcenter %q not found in system", e.JobID, e.Operation, e.Workcenter)
}

func (e *RoutingError) Unwrap() error { return ErrUnresolvedWorkcenter }

// PolicyError reports a priority policy that broke its selection contract.
type PolicyError struct {
	Policy string
	JobID  string // empty when the policy returned no job
	Reason string
}

func (e *PolicyError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("policy %s: %s", e.Policy, e.Reason)
	}
	return fmt.Sprintf("policy %s: %s (job %q)", e.Policy, e.Reason, e.JobID)
}

func (e *PolicyError) Unwrap() error { return ErrPolicyContract }
