// Tracks schedule-wide and per-job performance metrics such as:
// completion time, tardiness, weighted tardiness, and tardy-job counts.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// JobTiming is the realized timing of one job in a schedule.
type JobTiming struct {
	JobID             string  `json:"job_id"`
	Start             float64 `json:"start"` // start of the first committed operation
	End               float64 `json:"end"`   // finish of the last committed operation
	Tardiness         float64 `json:"tardiness"`
	WeightedTardiness float64 `json:"weighted_tardiness"`
}

// Metrics aggregates objective values of a finished schedule for reporting
// and for comparing policies on the same system.
type Metrics struct {
	ScheduleType string      `json:"schedule_type"`
	TimeStart    float64     `json:"time_start"`
	Cmax         float64     `json:"c_max"`
	Tmax         float64     `json:"t_max"`
	TardyJobs    int         `json:"sum_u"`
	SumC         float64     `json:"sum_c"`
	SumT         float64     `json:"sum_t"`
	SumWC        float64     `json:"sum_wc"`
	SumWT        float64     `json:"sum_wt"`
	Jobs         []JobTiming `json:"jobs"`
}

// ComputeMetrics derives job timings and totals from the assignments of a run.
// Jobs without assignments are omitted; totals over no jobs are zero.
func ComputeMetrics(sys *System, sched *Schedule, assignments []Assignment) *Metrics {
	m := &Metrics{Jobs: make([]JobTiming, 0, len(sys.Jobs))}
	if sched != nil {
		m.ScheduleType = sched.ScheduleType
	}

	type span struct{ start, end float64 }
	spans := make(map[string]*span, len(sys.Jobs))
	for _, a := range assignments {
		s, ok := spans[a.JobID]
		if !ok {
			spans[a.JobID] = &span{start: a.Start, end: a.Finish}
			continue
		}
		s.start = math.Min(s.start, a.Start)
		s.end = math.Max(s.end, a.Finish)
	}

	first := true
	for _, j := range sys.Jobs {
		s, ok := spans[j.ID]
		if !ok {
			continue
		}
		tardiness := math.Max(0, s.end-j.Due)
		m.Jobs = append(m.Jobs, JobTiming{
			JobID:             j.ID,
			Start:             s.start,
			End:               s.end,
			Tardiness:         tardiness,
			WeightedTardiness: tardiness * j.Weight,
		})
		if first || s.start < m.TimeStart {
			m.TimeStart = s.start
		}
		first = false
		m.Cmax = math.Max(m.Cmax, s.end)
		m.Tmax = math.Max(m.Tmax, tardiness)
		if tardiness > 0 {
			m.TardyJobs++
		}
		m.SumC += s.end
		m.SumT += tardiness
		m.SumWC += s.end * j.Weight
		m.SumWT += tardiness * j.Weight
	}
	return m
}

// Job returns the timing recorded for id.
func (m *Metrics) Job(id string) (JobTiming, bool) {
	for _, jt := range m.Jobs {
		if jt.JobID == id {
			return jt, true
		}
	}
	return JobTiming{}, false
}

// SaveResults writes the metrics as indented JSON.
func (m *Metrics) SaveResults(w io.Writer) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
