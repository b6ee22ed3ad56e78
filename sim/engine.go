package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dispatch-sim/dispatch-sim/sim/trace"
)

// Assignment is one operation committed to a machine.
type Assignment struct {
	Step       int     `json:"step"`
	JobID      string  `json:"job_id"`
	Operation  int     `json:"operation"`
	Workcenter string  `json:"workcenter"`
	Machine    string  `json:"machine"`
	Start      float64 `json:"start"`
	Finish     float64 `json:"finish"`
}

// machineKey identifies a machine; names are only unique within a workcenter.
type machineKey struct {
	workcenter string
	machine    string
}

// runState is the per-run mutable state. It is rebuilt by every Prepare and
// never shared between runs.
type runState struct {
	available    map[machineKey]float64
	parent       map[machineKey]string
	byWorkcenter map[string][]machineKey // attachment order, the tie-break among equal machines
	order        []machineKey            // output order: workcenter order, then attachment order
	sequences    map[machineKey][]string
	cursor       map[string]int // job ID → index of the next operation to dispatch
	assignments  []Assignment
}

// Engine is the time-advancing greedy dispatcher. It tracks machine
// availability, forms the eligible set at each decision time, asks a Policy to
// pick one job, and commits that job to the earliest-available machine of the
// required workcenter.
//
// An Engine holds the state of its most recent run for diagnostics and is not
// safe for concurrent use; use one Engine per goroutine.
type Engine struct {
	// Trace, when non-nil and enabled, receives every decision and assignment.
	Trace *trace.DispatchTrace
	// OnAssign, when non-nil, is called after each operation is committed.
	OnAssign func(Assignment)

	state *runState
}

// NewEngine creates an Engine with no trace and no assignment hook.
func NewEngine() *Engine {
	return &Engine{}
}

// Prepare builds fresh per-run state from sys: machine availability clocks
// (from each machine's release), the machine→workcenter mapping, and a cursor
// at the first operation of every job. Every operation's workcenter must
// resolve; the first that does not is reported as a *RoutingError.
func (e *Engine) Prepare(sys *System) error {
	if err := sys.Validate(); err != nil {
		return err
	}
	st := &runState{
		available:    make(map[machineKey]float64),
		parent:       make(map[machineKey]string),
		byWorkcenter: make(map[string][]machineKey, len(sys.Workcenters)),
		sequences:    make(map[machineKey][]string),
		cursor:       make(map[string]int, len(sys.Jobs)),
		assignments:  make([]Assignment, 0),
	}
	for _, wc := range sys.Workcenters {
		for _, m := range wc.Machines {
			key := machineKey{workcenter: wc.Name, machine: m.Name}
			st.available[key] = m.Release
			st.parent[key] = wc.Name
			st.byWorkcenter[wc.Name] = append(st.byWorkcenter[wc.Name], key)
			st.order = append(st.order, key)
			st.sequences[key] = make([]string, 0)
		}
	}
	for _, j := range sys.Jobs {
		for i, op := range j.Operations {
			if _, ok := st.byWorkcenter[op.Workcenter]; !ok {
				return &RoutingError{JobID: j.ID, Operation: i, Workcenter: op.Workcenter}
			}
		}
		st.cursor[j.ID] = 0
	}
	e.state = st
	if e.Trace != nil {
		e.Trace.Reset()
	}
	return nil
}

// Run executes a full dispatch of sys under policy and returns the resulting
// schedule. The run either completes or returns an error with no schedule.
// ctx is checked between decisions only; cancellation never changes the
// result of a run that completes.
func (e *Engine) Run(ctx context.Context, sys *System, policy Policy) (*Schedule, error) {
	if policy == nil {
		return nil, &PolicyError{Policy: "<nil>", Reason: "no policy supplied"}
	}
	if err := e.Prepare(sys); err != nil {
		return nil, err
	}
	st := e.state
	label := policy.Name()
	fullRoute := commitsFullRoute(policy)

	pending := make([]*Job, len(sys.Jobs))
	copy(pending, sys.Jobs)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	logrus.Infof("dispatch %s: %d jobs, %d machines", label, len(pending), len(st.order))

	for step := 0; len(pending) > 0; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dispatch canceled after %d decisions: %w", step, err)
		}

		t := st.decisionTime(pending)
		eligible := released(pending, t)

		chosen := policy.Select(eligible)
		if err := checkSelection(policy, eligible, chosen); err != nil {
			return nil, err
		}
		logrus.Debugf("[t=%g] %s chose %s among %d eligible", t, label, chosen.ID, len(eligible))
		e.recordDecision(step, t, label, eligible, chosen)

		if fullRoute {
			ready := chosen.Release
			for i := range chosen.Operations {
				finish, err := e.commit(step, chosen, i, ready)
				if err != nil {
					return nil, err
				}
				ready = finish
			}
		} else {
			if _, err := e.commit(step, chosen, 0, chosen.Release); err != nil {
				return nil, err
			}
		}
		pending = removeJob(pending, chosen)
	}

	makespan := 0.0
	if len(sys.Jobs) > 0 {
		makespan = st.latestAvailability()
	}
	logrus.Infof("dispatch %s: makespan %g after %d assignments", label, makespan, len(st.assignments))
	return NewSchedule(label, makespan, e.MachineSchedules()), nil
}

// Result bundles the outputs of one run.
type Result struct {
	Schedule    *Schedule    `json:"schedule"`
	Assignments []Assignment `json:"assignments"`
	Metrics     *Metrics     `json:"metrics"`
}

// Simulate runs the dispatch and computes schedule metrics from the committed assignments.
func (e *Engine) Simulate(ctx context.Context, sys *System, policy Policy) (*Result, error) {
	sched, err := e.Run(ctx, sys, policy)
	if err != nil {
		return nil, err
	}
	assignments := e.Assignments()
	return &Result{
		Schedule:    sched,
		Assignments: assignments,
		Metrics:     ComputeMetrics(sys, sched, assignments),
	}, nil
}

// MachineSchedules exposes the current per-machine sequences of the most
// recent run, in workcenter order and then attachment order. Returns nil
// before the first Prepare.
func (e *Engine) MachineSchedules() []MachineSchedule {
	if e.state == nil {
		return nil
	}
	out := make([]MachineSchedule, 0, len(e.state.order))
	for _, key := range e.state.order {
		out = append(out, MachineSchedule{
			Workcenter: e.state.parent[key],
			Machine:    key.machine,
			Operations: append([]string(nil), e.state.sequences[key]...),
		})
	}
	return out
}

// Assignments returns a copy of the operations committed by the most recent run, in commit order.
func (e *Engine) Assignments() []Assignment {
	if e.state == nil {
		return nil
	}
	return append([]Assignment(nil), e.state.assignments...)
}

// decisionTime is the earliest time at which some pending job can start: for
// each job, the later of its release and the earliest free machine of the
// workcenter its next operation needs, minimized over pending jobs. Machines
// that no released job can use never hold the clock back.
func (st *runState) decisionTime(pending []*Job) float64 {
	clock := math.Inf(1)
	for _, j := range pending {
		wc := j.Operations[st.cursor[j.ID]].Workcenter
		free := math.Inf(1)
		for _, key := range st.byWorkcenter[wc] {
			if st.available[key] < free {
				free = st.available[key]
			}
		}
		if start := math.Max(j.Release, free); start < clock {
			clock = start
		}
	}
	return clock
}

// commit places operation opIdx of job on the earliest-available machine of
// its workcenter and returns the finish time. ready is the earliest time the
// operation may start: the job's release, or its predecessor's finish.
func (e *Engine) commit(step int, job *Job, opIdx int, ready float64) (float64, error) {
	st := e.state
	op := job.Operations[opIdx]
	candidates, ok := st.byWorkcenter[op.Workcenter]
	if !ok || len(candidates) == 0 {
		return 0, &RoutingError{JobID: job.ID, Operation: opIdx, Workcenter: op.Workcenter}
	}

	chosen := candidates[0]
	for _, key := range candidates[1:] {
		if st.available[key] < st.available[chosen] {
			chosen = key
		}
	}

	start := math.Max(ready, st.available[chosen])
	finish := start + op.ProcessingTime
	st.available[chosen] = finish
	st.sequences[chosen] = append(st.sequences[chosen], job.ID)
	st.cursor[job.ID] = opIdx + 1

	a := Assignment{
		Step:       step,
		JobID:      job.ID,
		Operation:  opIdx,
		Workcenter: chosen.workcenter,
		Machine:    chosen.machine,
		Start:      start,
		Finish:     finish,
	}
	st.assignments = append(st.assignments, a)
	logrus.Debugf("[t=%g] %s op %d → %s/%s [%g, %g]", start, job.ID, opIdx, chosen.workcenter, chosen.machine, start, finish)

	if e.Trace != nil && e.Trace.Config.Enabled() {
		e.Trace.RecordAssignment(trace.AssignmentRecord{
			Step:       step,
			JobID:      a.JobID,
			Operation:  a.Operation,
			Workcenter: a.Workcenter,
			Machine:    a.Machine,
			Start:      a.Start,
			Finish:     a.Finish,
		})
	}
	if e.OnAssign != nil {
		e.OnAssign(a)
	}
	return finish, nil
}

func (e *Engine) recordDecision(step int, clock float64, policy string, eligible []*Job, chosen *Job) {
	if e.Trace == nil || !e.Trace.Config.Enabled() {
		return
	}
	ids := make([]string, len(eligible))
	for i, j := range eligible {
		ids[i] = j.ID
	}
	e.Trace.RecordDecision(trace.DecisionRecord{
		Step:     step,
		Clock:    clock,
		Policy:   policy,
		Eligible: ids,
		Chosen:   chosen.ID,
	})
}

func (st *runState) latestAvailability() float64 {
	latest := 0.0
	for _, key := range st.order {
		if st.available[key] > latest {
			latest = st.available[key]
		}
	}
	return latest
}

// checkSelection enforces the policy contract: a non-nil member of eligible.
func checkSelection(policy Policy, eligible []*Job, chosen *Job) error {
	if chosen == nil {
		reason := fmt.Sprintf("returned no job from %d eligible", len(eligible))
		if ep, ok := policy.(interface{ Err() error }); ok && ep.Err() != nil {
			reason = fmt.Sprintf("%s: %v", reason, ep.Err())
		}
		return &PolicyError{Policy: policy.Name(), Reason: reason}
	}
	for _, j := range eligible {
		if j == chosen {
			return nil
		}
	}
	return &PolicyError{Policy: policy.Name(), JobID: chosen.ID, Reason: "returned a job outside the eligible set"}
}

// released returns the pending jobs with release ≤ t, preserving order.
func released(pending []*Job, t float64) []*Job {
	out := make([]*Job, 0, len(pending))
	for _, j := range pending {
		if j.Release <= t {
			out = append(out, j)
		}
	}
	return out
}

func removeJob(pending []*Job, job *Job) []*Job {
	for i, j := range pending {
		if j == job {
			return append(pending[:i], pending[i+1:]...)
		}
	}
	return pending
}
