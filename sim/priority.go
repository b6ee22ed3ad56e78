package sim

import (
	"fmt"
	"sort"
)

// Policy chooses which eligible job is dispatched next.
// Implementations MUST be deterministic, MUST NOT modify the jobs, and MUST
// return a member of eligible. eligible is never empty and is ordered by job ID.
// Policies never see machine state.
type Policy interface {
	Name() string
	Select(eligible []*Job) *Job
}

// RouteCommitter is implemented by policies whose selected job has every
// operation on its route committed before the next decision. Policies that do
// not implement it (or return false) only ever dispatch a job's first operation.
type RouteCommitter interface {
	CommitsFullRoute() bool
}

// FCFSPolicy dispatches the earliest-released job, ties by job ID.
// It commits the job's full route.
type FCFSPolicy struct{}

func (p *FCFSPolicy) Name() string { return "FCFS" }

func (p *FCFSPolicy) Select(eligible []*Job) *Job {
	return selectMin(eligible, func(j *Job) float64 { return j.Release })
}

func (p *FCFSPolicy) CommitsFullRoute() bool { return true }

// SPTPolicy dispatches the job whose first operation is shortest, ties by job ID.
type SPTPolicy struct{}

func (p *SPTPolicy) Name() string { return "SPT" }

func (p *SPTPolicy) Select(eligible []*Job) *Job {
	return selectMin(eligible, func(j *Job) float64 { return j.FirstOperation().ProcessingTime })
}

// EDDPolicy dispatches the job with the earliest due date, ties by job ID.
type EDDPolicy struct{}

func (p *EDDPolicy) Name() string { return "EDD" }

func (p *EDDPolicy) Select(eligible []*Job) *Job {
	return selectMin(eligible, func(j *Job) float64 { return j.Due })
}

// WSPTPolicy dispatches the job with the smallest processing_time/weight ratio
// on its first operation, ties by job ID. With equal weights it reduces to SPT.
type WSPTPolicy struct{}

func (p *WSPTPolicy) Name() string { return "WSPT" }

func (p *WSPTPolicy) Select(eligible []*Job) *Job {
	return selectMin(eligible, func(j *Job) float64 { return j.FirstOperation().ProcessingTime / j.Weight })
}

// selectMin returns the job with the smallest key, breaking ties by ascending job ID.
// Returns nil for an empty slice.
func selectMin(eligible []*Job, key func(*Job) float64) *Job {
	var best *Job
	var bestKey float64
	for _, j := range eligible {
		k := key(j)
		if best == nil || k < bestKey || (k == bestKey && j.ID < best.ID) {
			best, bestKey = j, k
		}
	}
	return best
}

// funcPolicy adapts a plain selection function to Policy.
type funcPolicy struct {
	name string
	fn   func([]*Job) *Job
}

func (f *funcPolicy) Name() string                { return f.name }
func (f *funcPolicy) Select(eligible []*Job) *Job { return f.fn(eligible) }

// PolicyFunc wraps a selection function as a single-operation Policy.
func PolicyFunc(name string, fn func(eligible []*Job) *Job) Policy {
	return &funcPolicy{name: name, fn: fn}
}

// labeledPolicy overrides the schedule label of another policy while keeping its routing mode.
type labeledPolicy struct {
	Policy
	label string
}

func (l *labeledPolicy) Name() string { return l.label }

func (l *labeledPolicy) CommitsFullRoute() bool { return commitsFullRoute(l.Policy) }

// Err forwards the wrapped policy's failure reason, if it reports one.
func (l *labeledPolicy) Err() error {
	if ep, ok := l.Policy.(interface{ Err() error }); ok {
		return ep.Err()
	}
	return nil
}

// WithLabel returns p reporting label as its name. An empty label returns p unchanged.
func WithLabel(p Policy, label string) Policy {
	if label == "" {
		return p
	}
	return &labeledPolicy{Policy: p, label: label}
}

func commitsFullRoute(p Policy) bool {
	rc, ok := p.(RouteCommitter)
	return ok && rc.CommitsFullRoute()
}

// builtinPolicies maps registry names to constructors.
var builtinPolicies = map[string]func() Policy{
	"fcfs": func() Policy { return &FCFSPolicy{} },
	"spt":  func() Policy { return &SPTPolicy{} },
	"edd":  func() Policy { return &EDDPolicy{} },
	"wspt": func() Policy { return &WSPTPolicy{} },
}

// BuiltinPolicyNames lists the registered policy names in sorted order.
func BuiltinPolicyNames() []string {
	names := make([]string, 0, len(builtinPolicies))
	for name := range builtinPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPolicy creates a built-in Policy by name.
// Valid names: "fcfs" (default), "spt", "edd", "wspt".
// Empty string defaults to FCFSPolicy (for CLI flag default compatibility).
// Panics on unrecognized names; check IsValidPolicy first.
func NewPolicy(name string) Policy {
	if name == "" {
		name = "fcfs"
	}
	ctor, ok := builtinPolicies[name]
	if !ok {
		panic(fmt.Sprintf("unknown priority policy %q", name))
	}
	return ctor()
}
