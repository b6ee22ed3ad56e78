package sim

import (
	"testing"
)

// mustJob builds a validated job or fails the test.
func mustJob(t *testing.T, id string, release, due, weight float64, ops ...Operation) *Job {
	t.Helper()
	j, err := NewJob(id, release, due, weight, ops)
	if err != nil {
		t.Fatalf("NewJob(%q): %v", id, err)
	}
	return j
}

func op(workcenter string, processingTime float64) Operation {
	return Operation{Workcenter: workcenter, ProcessingTime: processingTime, Status: "A"}
}

// mustWorkcenter builds a workcenter whose machines are all released at 0.
func mustWorkcenter(t *testing.T, name string, machines ...string) *Workcenter {
	t.Helper()
	ms := make([]Machine, len(machines))
	for i, m := range machines {
		ms[i] = Machine{Name: m, Status: "A"}
	}
	wc, err := NewWorkcenter(name, 0, "A", ms)
	if err != nil {
		t.Fatalf("NewWorkcenter(%q): %v", name, err)
	}
	return wc
}

func mustSystem(t *testing.T, wcs []*Workcenter, jobs ...*Job) *System {
	t.Helper()
	sys := NewSystem()
	for _, wc := range wcs {
		if err := sys.AddWorkcenter(wc); err != nil {
			t.Fatalf("AddWorkcenter: %v", err)
		}
	}
	for _, j := range jobs {
		if err := sys.AddJob(j); err != nil {
			t.Fatalf("AddJob: %v", err)
		}
	}
	return sys
}

// twoJobSystem is the shared single-machine fixture:
// A{release 0, due 10, weight 1, (W1, 5)} and B{release 0, due 5, weight 1, (W1, 3)}.
func twoJobSystem(t *testing.T) *System {
	t.Helper()
	return mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1")},
		mustJob(t, "A", 0, 10, 1, op("W1", 5)),
		mustJob(t, "B", 0, 5, 1, op("W1", 3)),
	)
}

func jobIDs(jobs []*Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}
