package sim

// MachineSchedule is the ordered list of job IDs assigned to one machine.
type MachineSchedule struct {
	Workcenter string   `json:"workcenter" yaml:"workcenter"`
	Machine    string   `json:"machine" yaml:"machine"`
	Operations []string `json:"operations" yaml:"operations"`
}

// Schedule is the finished result of a dispatch run: a label naming the policy,
// the makespan, and one sequence per machine in workcenter/attachment order.
// It is assembled once by the engine and not modified afterwards.
type Schedule struct {
	ScheduleType string            `json:"schedule_type" yaml:"schedule_type"`
	Time         float64           `json:"time" yaml:"time"`
	Machines     []MachineSchedule `json:"machines" yaml:"machines"`
}

// NewSchedule deep-copies the machine sequences so later changes to the
// caller's slices cannot leak into the result.
func NewSchedule(scheduleType string, makespan float64, machines []MachineSchedule) *Schedule {
	copied := make([]MachineSchedule, len(machines))
	for i, ms := range machines {
		copied[i] = MachineSchedule{
			Workcenter: ms.Workcenter,
			Machine:    ms.Machine,
			Operations: append(make([]string, 0, len(ms.Operations)), ms.Operations...),
		}
	}
	return &Schedule{ScheduleType: scheduleType, Time: makespan, Machines: copied}
}

// Machine returns the sequence recorded for the named machine.
func (s *Schedule) Machine(workcenter, machine string) (MachineSchedule, bool) {
	for _, ms := range s.Machines {
		if ms.Workcenter == workcenter && ms.Machine == machine {
			return ms, true
		}
	}
	return MachineSchedule{}, false
}

// AssignedCount is the number of operations placed across all machines.
func (s *Schedule) AssignedCount() int {
	n := 0
	for _, ms := range s.Machines {
		n += len(ms.Operations)
	}
	return n
}
