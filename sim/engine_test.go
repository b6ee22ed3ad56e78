package sim

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatch-sim/dispatch-sim/sim/trace"
)

func runPolicy(t *testing.T, sys *System, p Policy) (*Schedule, *Engine) {
	t.Helper()
	eng := NewEngine()
	sched, err := eng.Run(context.Background(), sys, p)
	require.NoError(t, err)
	return sched, eng
}

func TestEngine_SingleMachine_PolicyOrdering(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []string
		label  string
	}{
		{"SPT shortest first", &SPTPolicy{}, []string{"B", "A"}, "SPT"},
		{"FCFS release tie broken by id", &FCFSPolicy{}, []string{"A", "B"}, "FCFS"},
		{"EDD earliest due first", &EDDPolicy{}, []string{"B", "A"}, "EDD"},
		{"WSPT equal weights reduces to SPT", &WSPTPolicy{}, []string{"B", "A"}, "WSPT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, _ := runPolicy(t, twoJobSystem(t), tt.policy)

			assert.Equal(t, tt.label, sched.ScheduleType)
			assert.Equal(t, 8.0, sched.Time)
			require.Len(t, sched.Machines, 1)
			assert.Equal(t, "W1", sched.Machines[0].Workcenter)
			assert.Equal(t, "M1", sched.Machines[0].Machine)
			assert.Equal(t, tt.want, sched.Machines[0].Operations)
		})
	}
}

func TestEngine_FCFS_RecordsDifferentArrivalTimes(t *testing.T) {
	// FCFS and SPT reach the same makespan with different per-job timings.
	sys := twoJobSystem(t)
	_, fcfs := runPolicy(t, sys, &FCFSPolicy{})
	_, spt := runPolicy(t, sys, &SPTPolicy{})

	assert.Equal(t, []Assignment{
		{Step: 0, JobID: "A", Workcenter: "W1", Machine: "M1", Start: 0, Finish: 5},
		{Step: 1, JobID: "B", Workcenter: "W1", Machine: "M1", Start: 5, Finish: 8},
	}, fcfs.Assignments())
	assert.Equal(t, []Assignment{
		{Step: 0, JobID: "B", Workcenter: "W1", Machine: "M1", Start: 0, Finish: 3},
		{Step: 1, JobID: "A", Workcenter: "W1", Machine: "M1", Start: 3, Finish: 8},
	}, spt.Assignments())
}

func TestEngine_TwoMachines_BalancedQueues(t *testing.T) {
	policies := []Policy{&FCFSPolicy{}, &SPTPolicy{}, &EDDPolicy{}, &WSPTPolicy{}}
	for _, p := range policies {
		t.Run(p.Name(), func(t *testing.T) {
			sys := mustSystem(t,
				[]*Workcenter{mustWorkcenter(t, "W1", "M1", "M2")},
				mustJob(t, "J1", 0, 10, 1, op("W1", 4)),
				mustJob(t, "J2", 0, 10, 1, op("W1", 4)),
				mustJob(t, "J3", 0, 10, 1, op("W1", 4)),
			)
			sched, eng := runPolicy(t, sys, p)

			require.Len(t, sched.Machines, 2)
			n1, n2 := len(sched.Machines[0].Operations), len(sched.Machines[1].Operations)
			assert.LessOrEqual(t, abs(n1-n2), 1, "queue lengths differ by more than one")

			latest := 0.0
			for _, a := range eng.Assignments() {
				if a.Finish > latest {
					latest = a.Finish
				}
			}
			assert.Equal(t, latest, sched.Time)
			assert.Equal(t, 8.0, sched.Time)
			// equal availability ties go to the first-attached machine
			assert.Equal(t, []string{"J1", "J3"}, sched.Machines[0].Operations)
			assert.Equal(t, []string{"J2"}, sched.Machines[1].Operations)
		})
	}
}

func TestEngine_EmptySystem_ZeroMakespan(t *testing.T) {
	sys := mustSystem(t, []*Workcenter{mustWorkcenter(t, "W1", "M1", "M2")})
	sched, _ := runPolicy(t, sys, &SPTPolicy{})

	assert.Equal(t, 0.0, sched.Time)
	require.Len(t, sched.Machines, 2)
	for _, ms := range sched.Machines {
		assert.Empty(t, ms.Operations)
	}
}

func TestEngine_EmptySystem_NoWorkcenters(t *testing.T) {
	sched, _ := runPolicy(t, NewSystem(), &FCFSPolicy{})
	assert.Equal(t, 0.0, sched.Time)
	assert.Empty(t, sched.Machines)
}

func TestEngine_IdleUntilRelease(t *testing.T) {
	// Nothing is released at t=0; the clock advances to the earliest release.
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1")},
		mustJob(t, "late", 10, 20, 1, op("W1", 2)),
		mustJob(t, "later", 15, 30, 1, op("W1", 1)),
	)
	sched, eng := runPolicy(t, sys, &SPTPolicy{})

	assert.Equal(t, []string{"late", "later"}, sched.Machines[0].Operations)
	a := eng.Assignments()
	require.Len(t, a, 2)
	assert.Equal(t, 10.0, a[0].Start)
	assert.Equal(t, 15.0, a[1].Start, "second job starts at its own release, not at the machine's free time")
	assert.Equal(t, 16.0, sched.Time)
}

func TestEngine_EligibleSetExcludesUnreleasedJobs(t *testing.T) {
	// At t=0 only "long" is released; SPT must not pick "short" before its release.
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1")},
		mustJob(t, "long", 0, 100, 1, op("W1", 10)),
		mustJob(t, "short", 1, 100, 1, op("W1", 1)),
		mustJob(t, "mid", 2, 100, 1, op("W1", 5)),
	)
	sched, _ := runPolicy(t, sys, &SPTPolicy{})

	// at t=10 both short and mid are released; short wins
	assert.Equal(t, []string{"long", "short", "mid"}, sched.Machines[0].Operations)
	assert.Equal(t, 16.0, sched.Time)
}

func TestEngine_IdleWorkcenterDoesNotHoldBackClock(t *testing.T) {
	// GIVEN three jobs on W1 and, optionally, a late job on an otherwise idle W2
	w1Jobs := func() []*Job {
		return []*Job{
			mustJob(t, "A", 0, 200, 1, op("W1", 100)),
			mustJob(t, "B", 10, 200, 1, op("W1", 5)),
			mustJob(t, "C", 20, 200, 1, op("W1", 1)),
		}
	}
	wcs := func() []*Workcenter {
		return []*Workcenter{mustWorkcenter(t, "W1", "M1"), mustWorkcenter(t, "W2", "M2")}
	}
	alone := mustSystem(t, wcs(), w1Jobs()...)
	withLate := mustSystem(t, wcs(), append(w1Jobs(), mustJob(t, "X", 200, 300, 1, op("W2", 1)))...)

	// WHEN both are dispatched with SPT
	schedAlone, _ := runPolicy(t, alone, &SPTPolicy{})
	schedLate, eng := runPolicy(t, withLate, &SPTPolicy{})

	// THEN W1 sees B and C together at t=100 and the W2 job changes nothing there
	m1Alone, ok := schedAlone.Machine("W1", "M1")
	require.True(t, ok)
	m1Late, ok := schedLate.Machine("W1", "M1")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C", "B"}, m1Alone.Operations)
	assert.Equal(t, m1Alone.Operations, m1Late.Operations)

	m2, ok := schedLate.Machine("W2", "M2")
	require.True(t, ok)
	assert.Equal(t, []string{"X"}, m2.Operations)
	a := eng.Assignments()
	assert.Equal(t, 200.0, a[len(a)-1].Start)
}

func TestEngine_ClockUsesEarliestFeasibleStart(t *testing.T) {
	// W2 is free from 0 but its only job is released at 50; W1 frees at 4.
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1"), mustWorkcenter(t, "W2", "M2")},
		mustJob(t, "A", 0, 100, 1, op("W1", 4)),
		mustJob(t, "B", 3, 100, 1, op("W1", 9)),
		mustJob(t, "C", 4, 100, 1, op("W1", 2)),
		mustJob(t, "Z", 50, 100, 1, op("W2", 1)),
	)
	eng := NewEngine()
	eng.Trace = trace.NewDispatchTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	_, err := eng.Run(context.Background(), sys, &SPTPolicy{})
	require.NoError(t, err)

	require.Len(t, eng.Trace.Decisions, 4)
	assert.Equal(t, 4.0, eng.Trace.Decisions[1].Clock)
	assert.Equal(t, []string{"B", "C"}, eng.Trace.Decisions[1].Eligible)
	assert.Equal(t, "C", eng.Trace.Decisions[1].Chosen)
}

func TestEngine_MachineReleaseDelaysStart(t *testing.T) {
	wc, err := NewWorkcenter("W1", 0, "A", []Machine{{Name: "M1", Release: 7}})
	require.NoError(t, err)
	sys := mustSystem(t, []*Workcenter{wc}, mustJob(t, "A", 0, 10, 1, op("W1", 2)))

	_, eng := runPolicy(t, sys, &EDDPolicy{})
	a := eng.Assignments()
	require.Len(t, a, 1)
	assert.Equal(t, 7.0, a[0].Start)
	assert.Equal(t, 9.0, a[0].Finish)
}

func TestEngine_EarliestMachineWins(t *testing.T) {
	wc, err := NewWorkcenter("W1", 0, "A", []Machine{{Name: "busy", Release: 5}, {Name: "free", Release: 0}})
	require.NoError(t, err)
	sys := mustSystem(t, []*Workcenter{wc}, mustJob(t, "A", 0, 10, 1, op("W1", 2)))

	sched, _ := runPolicy(t, sys, &SPTPolicy{})
	ms, ok := sched.Machine("W1", "free")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, ms.Operations)
	assert.Equal(t, 5.0, sched.Time, "makespan includes the idle machine's release")
}

func TestEngine_FCFS_CommitsFullRoute(t *testing.T) {
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1"), mustWorkcenter(t, "W2", "M2")},
		mustJob(t, "A", 0, 20, 1, op("W1", 3), op("W2", 2)),
		mustJob(t, "B", 1, 20, 1, op("W1", 2), op("W2", 4)),
	)
	sched, eng := runPolicy(t, sys, &FCFSPolicy{})

	assert.Equal(t, []Assignment{
		{Step: 0, JobID: "A", Operation: 0, Workcenter: "W1", Machine: "M1", Start: 0, Finish: 3},
		{Step: 0, JobID: "A", Operation: 1, Workcenter: "W2", Machine: "M2", Start: 3, Finish: 5},
		{Step: 1, JobID: "B", Operation: 0, Workcenter: "W1", Machine: "M1", Start: 3, Finish: 5},
		{Step: 1, JobID: "B", Operation: 1, Workcenter: "W2", Machine: "M2", Start: 5, Finish: 9},
	}, eng.Assignments())
	assert.Equal(t, 9.0, sched.Time)
	assert.Equal(t, []string{"A", "B"}, sched.Machines[0].Operations)
	assert.Equal(t, []string{"A", "B"}, sched.Machines[1].Operations)
}

func TestEngine_NonFCFS_DispatchesFirstOperationOnly(t *testing.T) {
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1"), mustWorkcenter(t, "W2", "M2")},
		mustJob(t, "A", 0, 20, 1, op("W1", 3), op("W2", 2)),
		mustJob(t, "B", 0, 20, 1, op("W2", 4), op("W1", 4)),
	)
	for _, p := range []Policy{&SPTPolicy{}, &EDDPolicy{}, &WSPTPolicy{}} {
		t.Run(p.Name(), func(t *testing.T) {
			sched, eng := runPolicy(t, sys, p)

			seen := map[string]int{}
			for _, a := range eng.Assignments() {
				assert.Equal(t, 0, a.Operation, "only first operations are dispatched")
				seen[a.JobID]++
			}
			assert.Equal(t, map[string]int{"A": 1, "B": 1}, seen)
			assert.Equal(t, 2, sched.AssignedCount())
		})
	}
}

func TestEngine_EveryJobExactlyOnce(t *testing.T) {
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1", "M2", "M3"), mustWorkcenter(t, "W2", "M4")},
	)
	for i := 0; i < 25; i++ {
		wc := "W1"
		if i%4 == 0 {
			wc = "W2"
		}
		j := mustJob(t, fmt.Sprintf("J%02d", i), float64(i%7), float64(30-i), float64(1+i%3), op(wc, float64(1+i%5)))
		require.NoError(t, sys.AddJob(j))
	}

	for _, p := range []Policy{&FCFSPolicy{}, &SPTPolicy{}, &EDDPolicy{}, &WSPTPolicy{}} {
		t.Run(p.Name(), func(t *testing.T) {
			sched, eng := runPolicy(t, sys, p)

			count := map[string]int{}
			for _, ms := range sched.Machines {
				for _, id := range ms.Operations {
					count[id]++
				}
			}
			assert.Len(t, count, 25, "no job omitted")
			for id, n := range count {
				assert.Equal(t, 1, n, "job %s scheduled more than once", id)
			}

			// start ≥ max(release, machine availability before assignment)
			avail := map[string]float64{}
			for _, m := range sys.Machines() {
				avail[m.Name] = m.Release
			}
			for _, a := range eng.Assignments() {
				j, _ := sys.Job(a.JobID)
				assert.GreaterOrEqual(t, a.Start, j.Release)
				assert.GreaterOrEqual(t, a.Start, avail[a.Machine])
				assert.LessOrEqual(t, a.Finish, sched.Time)
				avail[a.Machine] = a.Finish
			}
		})
	}
}

func TestEngine_UnresolvedWorkcenter_NoSchedule(t *testing.T) {
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1")},
		mustJob(t, "A", 0, 10, 1, op("W1", 1)),
		mustJob(t, "B", 0, 10, 1, op("W1", 1), op("W9", 1)),
	)
	eng := NewEngine()
	sched, err := eng.Run(context.Background(), sys, &SPTPolicy{})

	require.Error(t, err)
	assert.Nil(t, sched)
	assert.True(t, errors.Is(err, ErrUnresolvedWorkcenter))
	var re *RoutingError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "B", re.JobID)
	assert.Equal(t, 1, re.Operation)
	assert.Equal(t, "W9", re.Workcenter)
	assert.Empty(t, eng.Assignments(), "no assignment happens before routing is resolved")
}

func TestEngine_PolicyReturnsNil_ContractViolation(t *testing.T) {
	p := PolicyFunc("broken", func([]*Job) *Job { return nil })
	_, err := NewEngine().Run(context.Background(), twoJobSystem(t), p)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyContract))
}

func TestEngine_LabeledExprPolicy_KeepsFailureReason(t *testing.T) {
	p, err := NewExprPolicy("", "id")
	require.NoError(t, err)

	_, err = NewEngine().Run(context.Background(), twoJobSystem(t), WithLabel(p, "mine"))

	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "mine", pe.Policy)
	assert.Contains(t, err.Error(), "returned string")
}

func TestEngine_PolicyFabricatesJob_ContractViolation(t *testing.T) {
	fake := &Job{ID: "A", Operations: []Operation{op("W1", 1)}, Weight: 1}
	p := PolicyFunc("forger", func([]*Job) *Job { return fake })
	_, err := NewEngine().Run(context.Background(), twoJobSystem(t), p)

	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "forger", pe.Policy)
	assert.Equal(t, "A", pe.JobID)
}

func TestEngine_PolicyOutsideEligibleSet_ContractViolation(t *testing.T) {
	// "later" is in the system but not yet released at the first decision.
	sys := mustSystem(t,
		[]*Workcenter{mustWorkcenter(t, "W1", "M1")},
		mustJob(t, "now", 0, 10, 1, op("W1", 1)),
		mustJob(t, "later", 50, 60, 1, op("W1", 1)),
	)
	later, _ := sys.Job("later")
	p := PolicyFunc("eager", func([]*Job) *Job { return later })
	_, err := NewEngine().Run(context.Background(), sys, p)

	assert.True(t, errors.Is(err, ErrPolicyContract))
}

func TestEngine_NilPolicy(t *testing.T) {
	_, err := NewEngine().Run(context.Background(), twoJobSystem(t), nil)
	assert.True(t, errors.Is(err, ErrPolicyContract))
}

func TestEngine_InvalidSystem_Rejected(t *testing.T) {
	sys := NewSystem()
	sys.Workcenters = append(sys.Workcenters, &Workcenter{Name: "W1"})
	_, err := NewEngine().Run(context.Background(), sys, &FCFSPolicy{})
	assert.True(t, errors.Is(err, ErrInvalidEntity))
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched, err := NewEngine().Run(ctx, twoJobSystem(t), &SPTPolicy{})
	assert.Nil(t, sched)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_RunsAreIsolated(t *testing.T) {
	// GIVEN one engine reused for two runs
	eng := NewEngine()
	sys := twoJobSystem(t)
	first, err := eng.Run(context.Background(), sys, &SPTPolicy{})
	require.NoError(t, err)

	// WHEN it runs again
	second, err := eng.Run(context.Background(), sys, &SPTPolicy{})
	require.NoError(t, err)

	// THEN no state leaks from the first run
	assert.Equal(t, first, second)
	assert.Len(t, eng.Assignments(), 2)
}

func TestEngine_ScheduleIsNotAliasedToEngineState(t *testing.T) {
	eng := NewEngine()
	sched, err := eng.Run(context.Background(), twoJobSystem(t), &SPTPolicy{})
	require.NoError(t, err)

	sched.Machines[0].Operations[0] = "X"
	assert.Equal(t, []string{"B", "A"}, eng.MachineSchedules()[0].Operations)
}

func TestEngine_DoesNotMutateJobs(t *testing.T) {
	sys := twoJobSystem(t)
	before := *sys.Jobs[0]
	runPolicy(t, sys, &FCFSPolicy{})
	assert.Equal(t, before, *sys.Jobs[0])
}

func TestEngine_MachineSchedules_BeforePrepare(t *testing.T) {
	assert.Nil(t, NewEngine().MachineSchedules())
	assert.Nil(t, NewEngine().Assignments())
}

func TestEngine_Prepare_InitializesFromMachineRelease(t *testing.T) {
	wc, err := NewWorkcenter("W1", 0, "A", []Machine{{Name: "M1", Release: 3}, {Name: "M2"}})
	require.NoError(t, err)
	sys := mustSystem(t, []*Workcenter{wc}, mustJob(t, "A", 0, 1, 1, op("W1", 1)))

	eng := NewEngine()
	require.NoError(t, eng.Prepare(sys))
	ms := eng.MachineSchedules()
	require.Len(t, ms, 2)
	assert.Equal(t, "M1", ms[0].Machine)
	assert.Equal(t, "W1", ms[0].Workcenter)
	assert.Empty(t, ms[0].Operations)
	assert.Equal(t, 3.0, eng.state.available[machineKey{"W1", "M1"}])
	assert.Equal(t, 0, eng.state.cursor["A"])
}

func TestEngine_Trace_RecordsDecisionsAndAssignments(t *testing.T) {
	eng := NewEngine()
	eng.Trace = trace.NewDispatchTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	_, err := eng.Run(context.Background(), twoJobSystem(t), &SPTPolicy{})
	require.NoError(t, err)

	require.Len(t, eng.Trace.Decisions, 2)
	assert.Equal(t, []string{"A", "B"}, eng.Trace.Decisions[0].Eligible)
	assert.Equal(t, "B", eng.Trace.Decisions[0].Chosen)
	assert.Equal(t, []string{"A"}, eng.Trace.Decisions[1].Eligible)
	assert.Equal(t, 3.0, eng.Trace.Decisions[1].Clock)
	require.Len(t, eng.Trace.Assignments, 2)
	assert.Equal(t, "W1/M1", eng.Trace.Assignments[1].MachineKey())
}

func TestEngine_Trace_NoneLevelRecordsNothing(t *testing.T) {
	eng := NewEngine()
	eng.Trace = trace.NewDispatchTrace(trace.TraceConfig{Level: trace.TraceLevelNone})
	_, err := eng.Run(context.Background(), twoJobSystem(t), &SPTPolicy{})
	require.NoError(t, err)
	assert.Empty(t, eng.Trace.Decisions)
	assert.Empty(t, eng.Trace.Assignments)
}

func TestEngine_OnAssign_CalledPerOperation(t *testing.T) {
	var got []string
	eng := NewEngine()
	eng.OnAssign = func(a Assignment) { got = append(got, a.JobID) }
	_, err := eng.Run(context.Background(), twoJobSystem(t), &EDDPolicy{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, got)
}

func TestEngine_Simulate_ComputesMetrics(t *testing.T) {
	res, err := NewEngine().Simulate(context.Background(), twoJobSystem(t), &FCFSPolicy{})
	require.NoError(t, err)

	assert.Equal(t, "FCFS", res.Metrics.ScheduleType)
	assert.Equal(t, 8.0, res.Metrics.Cmax)
	// A ends at 5 (due 10), B ends at 8 (due 5) → B is 3 late
	assert.Equal(t, 3.0, res.Metrics.SumT)
	assert.Equal(t, 1, res.Metrics.TardyJobs)
	assert.Len(t, res.Assignments, 2)
}

func TestEngine_Deterministic_SameInputSameSchedule(t *testing.T) {
	for i := 0; i < 5; i++ {
		a, _ := runPolicy(t, twoJobSystem(t), &WSPTPolicy{})
		b, _ := runPolicy(t, twoJobSystem(t), &WSPTPolicy{})
		assert.Equal(t, a, b)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
