// Package report renders finished dispatch runs as fixed-width text tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dispatch-sim/dispatch-sim/sim"
)

// num formats a time or weight without trailing zeros.
func num(f float64) string {
	return humanize.Ftoa(f)
}

// MachineDetails writes the schedule label, its makespan, and each machine's job sequence.
func MachineDetails(w io.Writer, sched *sim.Schedule) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule type: %s\n", sched.ScheduleType)
	fmt.Fprintf(&b, "Total time: %s\n", num(sched.Time))
	for _, ms := range sched.Machines {
		fmt.Fprintf(&b, "%s/%s: [%s]\n", ms.Workcenter, ms.Machine, strings.Join(ms.Operations, " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// JobDetails writes one row per scheduled job with its realized begin and end
// times and its tardiness. Jobs absent from metrics are skipped.
func JobDetails(w io.Writer, sys *sim.System, m *sim.Metrics) error {
	var b strings.Builder
	b.WriteString("Detailed Job Schedule:\n")
	fmt.Fprintf(&b, "%-6s %-5s %-4s %-4s %-7s %-6s %-4s %-4s %-4s %-4s\n",
		"ID", "Wght", "Rls", "Due", "Pr.tm.", "Stat.", "Bgn", "End", "T", "wT")
	for _, j := range sys.Jobs {
		jt, ok := m.Job(j.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-6s %-5s %-4s %-4s %-7s %-6s %-4s %-4s %-4s %-4s\n",
			j.ID, num(j.Weight), num(j.Release), num(j.Due), num(j.TotalProcessingTime()),
			j.FirstOperation().Status, num(jt.Start), num(jt.End),
			num(jt.Tardiness), num(jt.WeightedTardiness))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Sequence writes each machine followed by the operations committed to it, in
// schedule order, with their start and stop times. Setup is always zero.
func Sequence(w io.Writer, sched *sim.Schedule, assignments []sim.Assignment) error {
	type key struct{ wc, m string }
	byMachine := make(map[key][]sim.Assignment)
	for _, a := range assignments {
		k := key{a.Workcenter, a.Machine}
		byMachine[k] = append(byMachine[k], a)
	}

	var b strings.Builder
	b.WriteString("Job Sequence per Machine:\n")
	fmt.Fprintf(&b, "%-8s %-6s %-6s %-6s %-6s\n", "Mch/Job", "Setup", "Start", "Stop", "Pr.tm.")
	for _, ms := range sched.Machines {
		fmt.Fprintf(&b, "%-8s\n", ms.Machine)
		for _, a := range byMachine[key{ms.Workcenter, ms.Machine}] {
			fmt.Fprintf(&b, "  %-6s %-6s %-6s %-6s %-6s\n",
				a.JobID, "0", num(a.Start), num(a.Finish), num(a.Finish-a.Start))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Summary writes the objective totals.
func Summary(w io.Writer, m *sim.Metrics) error {
	rows := []struct {
		label string
		value string
	}{
		{"Time", num(m.TimeStart)},
		{"C_max", num(m.Cmax)},
		{"T_max", num(m.Tmax)},
		{"ΣU_j", humanize.Comma(int64(m.TardyJobs))},
		{"ΣC_j", num(m.SumC)},
		{"ΣT_j", num(m.SumT)},
		{"ΣwC_j", num(m.SumWC)},
		{"ΣwT_j", num(m.SumWT)},
	}
	var b strings.Builder
	b.WriteString("Summary:\n")
	for _, r := range rows {
		// pad by rune count so Σ labels line up
		pad := 10 - len([]rune(r.label))
		if pad < 1 {
			pad = 1
		}
		fmt.Fprintf(&b, "%s%s%s\n", r.label, strings.Repeat(" ", pad), r.value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Write renders every report for a finished run, separated by blank lines.
func Write(w io.Writer, sys *sim.System, res *sim.Result) error {
	steps := []func() error{
		func() error { return MachineDetails(w, res.Schedule) },
		func() error { return JobDetails(w, sys, res.Metrics) },
		func() error { return Sequence(w, res.Schedule, res.Assignments) },
		func() error { return Summary(w, res.Metrics) },
	}
	for i, step := range steps {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := step(); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}
