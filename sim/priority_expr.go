package sim

import (
	"fmt"
	"math"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// ExprPolicy selects the eligible job minimizing a user-supplied expression,
// ties by job ID. The expression sees one job at a time through these variables:
//
//	id               job ID (string)
//	release          release time
//	due              due date
//	weight           weight
//	processing_time  first operation's processing time
//	total_time       processing time summed over the route
//	operations       number of operations on the route
//
// Example: "due - release - processing_time" (minimum slack first).
// Like the other non-FCFS policies it dispatches only a job's first operation.
//
// Select records its failure reason for Err, so an ExprPolicy must not be
// shared between concurrent runs; build one per run.
type ExprPolicy struct {
	name    string
	source  string
	program *vm.Program
	err     error
}

// NewExprPolicy compiles expression. name labels the resulting schedule.
func NewExprPolicy(name, expression string) (*ExprPolicy, error) {
	if expression == "" {
		return nil, fmt.Errorf("policy expression must not be empty")
	}
	program, err := expr.Compile(expression, expr.Env(exprEnv(nil)))
	if err != nil {
		return nil, fmt.Errorf("compiling policy expression %q: %w", expression, err)
	}
	if name == "" {
		name = "EXPR"
	}
	return &ExprPolicy{name: name, source: expression, program: program}, nil
}

func (p *ExprPolicy) Name() string { return p.name }

// Expression returns the source expression.
func (p *ExprPolicy) Expression() string { return p.source }

// Err reports why the last Select returned nil.
func (p *ExprPolicy) Err() error { return p.err }

func (p *ExprPolicy) Select(eligible []*Job) *Job {
	p.err = nil
	keys := make(map[*Job]float64, len(eligible))
	for _, j := range eligible {
		k, err := p.eval(j)
		if err != nil {
			p.err = err
			return nil
		}
		keys[j] = k
	}
	return selectMin(eligible, func(j *Job) float64 { return keys[j] })
}

func (p *ExprPolicy) eval(j *Job) (float64, error) {
	out, err := expr.Run(p.program, exprEnv(j))
	if err != nil {
		return 0, fmt.Errorf("evaluating %q for job %q: %w", p.source, j.ID, err)
	}
	var key float64
	switch v := out.(type) {
	case float64:
		key = v
	case float32:
		key = float64(v)
	case int:
		key = float64(v)
	case int64:
		key = float64(v)
	case int32:
		key = float64(v)
	default:
		return 0, fmt.Errorf("expression %q returned %T for job %q, want a number", p.source, out, j.ID)
	}
	if math.IsNaN(key) {
		return 0, fmt.Errorf("expression %q returned NaN for job %q", p.source, j.ID)
	}
	return key, nil
}

// exprEnv exposes a job to the expression. A nil job yields zero values for compilation.
func exprEnv(j *Job) map[string]interface{} {
	if j == nil {
		return map[string]interface{}{
			"id": "", "release": 0.0, "due": 0.0, "weight": 0.0,
			"processing_time": 0.0, "total_time": 0.0, "operations": 0,
		}
	}
	return map[string]interface{}{
		"id":              j.ID,
		"release":         j.Release,
		"due":             j.Due,
		"weight":          j.Weight,
		"processing_time": j.FirstOperation().ProcessingTime,
		"total_time":      j.TotalProcessingTime(),
		"operations":      len(j.Operations),
	}
}
