// Package sim provides the dispatch-rule production scheduling engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - job.go, machine.go, system.go: the validated entity model
//   - priority.go: the Policy interface and the FCFS/SPT/EDD/WSPT rules
//   - engine.go: the greedy dispatch loop and machine allocation
//
// # Architecture
//
// A System (jobs + workcenters) is read-only input. Engine.Run builds fresh
// per-run state, repeatedly asks a Policy to pick one job from the eligible
// set, and commits it to the earliest-available machine of the workcenter its
// operation needs. The result is a Schedule: per-machine job sequences and
// the makespan.
//
// Non-FCFS policies dispatch only a job's first operation. FCFS commits a
// job's whole route, each operation starting no earlier than its
// predecessor's finish.
//
// Sub-packages:
//   - sim/trace/: decision and assignment trace recording
//   - sim/report/: tabular text reports
//   - sim/store/: SQLite run history
//
// # Key Interfaces
//
//   - Policy: select one job from the eligible set (pure, deterministic)
//   - RouteCommitter: opt a Policy into full-route commitment
package sim
