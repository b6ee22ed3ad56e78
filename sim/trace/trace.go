package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every policy decision and machine assignment.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether records should be collected at all.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// DispatchTrace collects decision and assignment records during one dispatch run.
type DispatchTrace struct {
	Config      TraceConfig
	Decisions   []DecisionRecord
	Assignments []AssignmentRecord
}

// NewDispatchTrace creates a DispatchTrace ready for recording.
func NewDispatchTrace(config TraceConfig) *DispatchTrace {
	return &DispatchTrace{
		Config:      config,
		Decisions:   make([]DecisionRecord, 0),
		Assignments: make([]AssignmentRecord, 0),
	}
}

// RecordDecision appends a policy decision record.
func (dt *DispatchTrace) RecordDecision(record DecisionRecord) {
	dt.Decisions = append(dt.Decisions, record)
}

// RecordAssignment appends a machine assignment record.
func (dt *DispatchTrace) RecordAssignment(record AssignmentRecord) {
	dt.Assignments = append(dt.Assignments, record)
}

// Reset drops all records, keeping the configuration.
func (dt *DispatchTrace) Reset() {
	dt.Decisions = dt.Decisions[:0]
	dt.Assignments = dt.Assignments[:0]
}
