package sim

import "fmt"

// Machine is a single processing resource inside a Workcenter.
// Release is the earliest time it can start work.
type Machine struct {
	Name    string  `json:"name" yaml:"name"`
	Release float64 `json:"release" yaml:"release"`
	Status  string  `json:"status" yaml:"status"`
}

// NewMachine builds a validated Machine.
func NewMachine(name string, release float64, status string) (Machine, error) {
	m := Machine{Name: name, Release: release, Status: status}
	if err := m.validate("machine"); err != nil {
		return Machine{}, err
	}
	return m, nil
}

func (m Machine) validate(entity string) error {
	if m.Name == "" {
		return &ValidationError{Entity: entity, Field: "name", Reason: "must not be empty"}
	}
	if err := validateFinite(entity, "release", m.Release); err != nil {
		return err
	}
	if m.Release < 0 {
		return &ValidationError{Entity: entity, Field: "release", Reason: fmt.Sprintf("must be non-negative, got %g", m.Release)}
	}
	return nil
}

// Workcenter is a pool of interchangeable machines. Machine order is the
// order of attachment and is the engine's tie-break among equally available machines.
type Workcenter struct {
	Name     string    `json:"name" yaml:"name"`
	Release  float64   `json:"release" yaml:"release"`
	Status   string    `json:"status" yaml:"status"`
	RGB      *RGB      `json:"rgb" yaml:"rgb"`
	Machines []Machine `json:"machines" yaml:"machines"`
}

// NewWorkcenter builds a validated Workcenter. A workcenter without machines is rejected.
func NewWorkcenter(name string, release float64, status string, machines []Machine) (*Workcenter, error) {
	wc := &Workcenter{
		Name:     name,
		Release:  release,
		Status:   status,
		Machines: append([]Machine(nil), machines...),
	}
	if err := wc.Validate(); err != nil {
		return nil, err
	}
	return wc, nil
}

// Validate checks the workcenter and its machines.
func (wc *Workcenter) Validate() error {
	if wc == nil {
		return &ValidationError{Entity: "workcenter", Reason: "is nil"}
	}
	if wc.Name == "" {
		return &ValidationError{Entity: "workcenter", Field: "name", Reason: "must not be empty"}
	}
	entity := fmt.Sprintf("workcenter %q", wc.Name)
	if err := validateFinite(entity, "release", wc.Release); err != nil {
		return err
	}
	if wc.Release < 0 {
		return &ValidationError{Entity: entity, Field: "release", Reason: fmt.Sprintf("must be non-negative, got %g", wc.Release)}
	}
	if len(wc.Machines) == 0 {
		return &ValidationError{Entity: entity, Field: "machines", Reason: "must contain at least one machine"}
	}
	seen := make(map[string]bool, len(wc.Machines))
	for i, m := range wc.Machines {
		if err := m.validate(fmt.Sprintf("workcenter %q machine %d", wc.Name, i)); err != nil {
			return err
		}
		if seen[m.Name] {
			return &ValidationError{Entity: entity, Field: "machines", Reason: fmt.Sprintf("duplicate machine name %q", m.Name)}
		}
		seen[m.Name] = true
	}
	if wc.RGB != nil {
		return wc.RGB.validate(entity)
	}
	return nil
}
