// Package trace provides decision-trace recording for dispatch runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// DecisionRecord captures a single priority policy decision.
type DecisionRecord struct {
	Step     int      `json:"step"`
	Clock    float64  `json:"clock"`
	Policy   string   `json:"policy"`
	Eligible []string `json:"eligible"` // job IDs offered to the policy, ascending
	Chosen   string   `json:"chosen"`
}

// AssignmentRecord captures one operation committed to a machine.
type AssignmentRecord struct {
	Step       int     `json:"step"`
	JobID      string  `json:"job_id"`
	Operation  int     `json:"operation"`
	Workcenter string  `json:"workcenter"`
	Machine    string  `json:"machine"`
	Start      float64 `json:"start"`
	Finish     float64 `json:"finish"`
}

// MachineKey identifies a machine across workcenters.
func (r AssignmentRecord) MachineKey() string {
	return r.Workcenter + "/" + r.Machine
}
