package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dispatch-sim/dispatch-sim/sim/trace"
)

// RunConfig holds a dispatch run's configuration, loadable from a YAML file.
// Empty strings and nil pointers mean "not set" and do not override CLI flags.
type RunConfig struct {
	Policy        string `yaml:"policy"`
	Expression    string `yaml:"expression"`
	ScheduleLabel string `yaml:"schedule_label"`
	Seed          *int64 `yaml:"seed"`
	TraceLevel    string `yaml:"trace_level"`
}

// ExprPolicyName selects ExprPolicy; the expression comes from RunConfig.Expression.
const ExprPolicyName = "expr"

// ValidPolicies is the set of recognized policy names.
// Shared by Validate() and ResolvePolicy() to avoid duplication.
var ValidPolicies = map[string]bool{"": true, "fcfs": true, "spt": true, "edd": true, "wspt": true, ExprPolicyName: true}

// IsValidPolicy reports whether name is a recognized policy name.
func IsValidPolicy(name string) bool {
	return ValidPolicies[name]
}

// LoadRunConfig reads and parses a YAML run configuration file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate checks policy names, trace level, and that the expr policy has an expression.
func (c *RunConfig) Validate() error {
	if !IsValidPolicy(c.Policy) {
		return fmt.Errorf("%w %q", ErrUnknownPolicy, c.Policy)
	}
	if c.Policy == ExprPolicyName && c.Expression == "" {
		return fmt.Errorf("policy %q requires an expression", ExprPolicyName)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	return nil
}

// BuildPolicy validates the configuration and constructs its Policy.
func (c *RunConfig) BuildPolicy() (Policy, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err := ResolvePolicy(c.Policy, c.Expression)
	if err != nil {
		return nil, err
	}
	return WithLabel(p, c.ScheduleLabel), nil
}

// ResolvePolicy maps a policy name, and for "expr" its expression, to a Policy.
// An expression with an empty name also selects ExprPolicy.
func ResolvePolicy(name, expression string) (Policy, error) {
	if !IsValidPolicy(name) {
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, name)
	}
	if name == ExprPolicyName || (name == "" && expression != "") {
		return NewExprPolicy("EXPR", expression)
	}
	return NewPolicy(name), nil
}
