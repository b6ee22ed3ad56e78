package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// System is the complete scheduling environment: every job, every workcenter,
// and optionally the schedule last computed for them.
type System struct {
	Jobs        []*Job        `json:"jobs" yaml:"jobs"`
	Workcenters []*Workcenter `json:"workcenters" yaml:"workcenters"`
	Schedule    *Schedule     `json:"schedule" yaml:"schedule,omitempty"`
}

// NewSystem returns an empty System.
func NewSystem() *System {
	return &System{
		Jobs:        make([]*Job, 0),
		Workcenters: make([]*Workcenter, 0),
	}
}

// AddJob validates and appends a job. Job IDs must be unique.
func (s *System) AddJob(j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	if _, ok := s.Job(j.ID); ok {
		return &ValidationError{Entity: "system", Field: "jobs", Reason: fmt.Sprintf("duplicate job_id %q", j.ID)}
	}
	s.Jobs = append(s.Jobs, j)
	return nil
}

// AddWorkcenter validates and appends a workcenter. Names must be unique.
func (s *System) AddWorkcenter(wc *Workcenter) error {
	if err := wc.Validate(); err != nil {
		return err
	}
	if _, ok := s.Workcenter(wc.Name); ok {
		return &ValidationError{Entity: "system", Field: "workcenters", Reason: fmt.Sprintf("duplicate workcenter name %q", wc.Name)}
	}
	s.Workcenters = append(s.Workcenters, wc)
	return nil
}

// SetSchedule attaches a computed schedule.
func (s *System) SetSchedule(sched *Schedule) {
	s.Schedule = sched
}

// Job looks up a job by ID.
func (s *System) Job(id string) (*Job, bool) {
	for _, j := range s.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

// Workcenter resolves a workcenter by name.
func (s *System) Workcenter(name string) (*Workcenter, bool) {
	for _, wc := range s.Workcenters {
		if wc.Name == name {
			return wc, true
		}
	}
	return nil, false
}

// Machines flattens all machines in workcenter order, then attachment order.
func (s *System) Machines() []Machine {
	var all []Machine
	for _, wc := range s.Workcenters {
		all = append(all, wc.Machines...)
	}
	return all
}

// Validate checks every entity and the uniqueness of job IDs and workcenter names.
// Operation-to-workcenter references are not checked here; the engine
// reports them when a run is prepared.
func (s *System) Validate() error {
	if s == nil {
		return &ValidationError{Entity: "system", Reason: "is nil"}
	}
	jobIDs := make(map[string]bool, len(s.Jobs))
	for _, j := range s.Jobs {
		if err := j.Validate(); err != nil {
			return err
		}
		if jobIDs[j.ID] {
			return &ValidationError{Entity: "system", Field: "jobs", Reason: fmt.Sprintf("duplicate job_id %q", j.ID)}
		}
		jobIDs[j.ID] = true
	}
	names := make(map[string]bool, len(s.Workcenters))
	for _, wc := range s.Workcenters {
		if err := wc.Validate(); err != nil {
			return err
		}
		if names[wc.Name] {
			return &ValidationError{Entity: "system", Field: "workcenters", Reason: fmt.Sprintf("duplicate workcenter name %q", wc.Name)}
		}
		names[wc.Name] = true
	}
	return nil
}

// DecodeSystemJSON parses a JSON system description and validates it.
// Unknown fields are rejected.
func DecodeSystemJSON(r io.Reader) (*System, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	sys := NewSystem()
	if err := dec.Decode(sys); err != nil {
		return nil, fmt.Errorf("parsing system JSON: %w", err)
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

// DecodeSystemYAML parses a YAML system description and validates it.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func DecodeSystemYAML(r io.Reader) (*System, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	sys := NewSystem()
	if err := dec.Decode(sys); err != nil {
		return nil, fmt.Errorf("parsing system YAML: %w", err)
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

// LoadSystem reads a system file, choosing the decoder by extension
// (.json, otherwise YAML).
func LoadSystem(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading system file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeSystemJSON(bytes.NewReader(data))
	}
	return DecodeSystemYAML(bytes.NewReader(data))
}

// EncodeJSON writes the system, including any attached schedule, as indented JSON.
func (s *System) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
