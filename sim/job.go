package sim

import (
	"fmt"
	"math"
)

// RGB is a display color carried through serialization. It has no effect on scheduling.
type RGB [3]int

func (c RGB) validate(entity string) error {
	for i, v := range c {
		if v < 0 || v > 255 {
			return &ValidationError{Entity: entity, Field: "rgb", Reason: fmt.Sprintf("channel %d must be in [0, 255], got %d", i, v)}
		}
	}
	return nil
}

// Operation is one step of a job's route: the workcenter it needs and how long it takes there.
type Operation struct {
	Workcenter     string  `json:"workcenter" yaml:"workcenter"`
	ProcessingTime float64 `json:"processing_time" yaml:"processing_time"`
	Status         string  `json:"status" yaml:"status"`
}

// NewOperation builds a validated Operation.
func NewOperation(workcenter string, processingTime float64, status string) (Operation, error) {
	op := Operation{Workcenter: workcenter, ProcessingTime: processingTime, Status: status}
	if err := op.validate("operation"); err != nil {
		return Operation{}, err
	}
	return op, nil
}

func (o Operation) validate(entity string) error {
	if o.Workcenter == "" {
		return &ValidationError{Entity: entity, Field: "workcenter", Reason: "must not be empty"}
	}
	if err := validateFinite(entity, "processing_time", o.ProcessingTime); err != nil {
		return err
	}
	if o.ProcessingTime < 0 {
		return &ValidationError{Entity: entity, Field: "processing_time", Reason: fmt.Sprintf("must be non-negative, got %g", o.ProcessingTime)}
	}
	return nil
}

// Job is a unit of work with a release time, a due date, a weight, and a route of operations.
// The engine only reads jobs; routing progress is tracked in per-run state.
type Job struct {
	ID         string      `json:"job_id" yaml:"job_id"`
	Release    float64     `json:"release" yaml:"release"`
	Due        float64     `json:"due" yaml:"due"`
	Weight     float64     `json:"weight" yaml:"weight"`
	RGB        *RGB        `json:"rgb" yaml:"rgb"`
	Operations []Operation `json:"operations" yaml:"operations"`
}

// NewJob builds a validated Job. The operations slice is copied.
func NewJob(id string, release, due, weight float64, operations []Operation) (*Job, error) {
	j := &Job{
		ID:         id,
		Release:    release,
		Due:        due,
		Weight:     weight,
		Operations: append([]Operation(nil), operations...),
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// Validate checks the job's fields and every operation on its route.
func (j *Job) Validate() error {
	if j == nil {
		return &ValidationError{Entity: "job", Reason: "is nil"}
	}
	if j.ID == "" {
		return &ValidationError{Entity: "job", Field: "job_id", Reason: "must not be empty"}
	}
	entity := fmt.Sprintf("job %q", j.ID)
	for _, f := range []struct {
		name string
		val  float64
	}{{"release", j.Release}, {"due", j.Due}, {"weight", j.Weight}} {
		if err := validateFinite(entity, f.name, f.val); err != nil {
			return err
		}
	}
	if j.Release < 0 {
		return &ValidationError{Entity: entity, Field: "release", Reason: fmt.Sprintf("must be non-negative, got %g", j.Release)}
	}
	if j.Weight <= 0 {
		return &ValidationError{Entity: entity, Field: "weight", Reason: fmt.Sprintf("must be positive, got %g", j.Weight)}
	}
	if len(j.Operations) == 0 {
		return &ValidationError{Entity: entity, Field: "operations", Reason: "must contain at least one operation"}
	}
	for i, op := range j.Operations {
		if err := op.validate(fmt.Sprintf("job %q operation %d", j.ID, i)); err != nil {
			return err
		}
	}
	if j.RGB != nil {
		return j.RGB.validate(entity)
	}
	return nil
}

// FirstOperation returns the head of the route.
func (j *Job) FirstOperation() Operation {
	return j.Operations[0]
}

// TotalProcessingTime sums processing time across the route.
func (j *Job) TotalProcessingTime() float64 {
	total := 0.0
	for _, op := range j.Operations {
		total += op.ProcessingTime
	}
	return total
}

func validateFinite(entity, field string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return &ValidationError{Entity: entity, Field: field, Reason: fmt.Sprintf("must be a finite number, got %f", val)}
	}
	return nil
}
