package trace

// TraceSummary aggregates statistics from a DispatchTrace.
type TraceSummary struct {
	TotalDecisions     int
	TotalAssignments   int
	MaxEligible        int
	MeanEligible       float64
	Makespan           float64            // latest finish across assignments
	MachineBusy        map[string]float64 // "workcenter/machine" → summed processing time
	MachineUtilization map[string]float64 // busy / makespan
	JobsPerMachine     map[string]int
}

// Summarize computes aggregate statistics from a DispatchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(dt *DispatchTrace) *TraceSummary {
	summary := &TraceSummary{
		MachineBusy:        make(map[string]float64),
		MachineUtilization: make(map[string]float64),
		JobsPerMachine:     make(map[string]int),
	}
	if dt == nil {
		return summary
	}

	summary.TotalDecisions = len(dt.Decisions)
	if len(dt.Decisions) > 0 {
		total := 0
		for _, d := range dt.Decisions {
			total += len(d.Eligible)
			if len(d.Eligible) > summary.MaxEligible {
				summary.MaxEligible = len(d.Eligible)
			}
		}
		summary.MeanEligible = float64(total) / float64(len(dt.Decisions))
	}

	summary.TotalAssignments = len(dt.Assignments)
	for _, a := range dt.Assignments {
		key := a.MachineKey()
		summary.MachineBusy[key] += a.Finish - a.Start
		summary.JobsPerMachine[key]++
		if a.Finish > summary.Makespan {
			summary.Makespan = a.Finish
		}
	}
	if summary.Makespan > 0 {
		for key, busy := range summary.MachineBusy {
			summary.MachineUtilization[key] = busy / summary.Makespan
		}
	}

	return summary
}
