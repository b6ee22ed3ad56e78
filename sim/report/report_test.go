package report

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatch-sim/dispatch-sim/sim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// sptRun dispatches A (due 10, 5) and B (due 5, 3) on one machine under SPT:
// B runs 0–3, A runs 3–8.
func sptRun(t *testing.T) (*sim.System, *sim.Result) {
	t.Helper()
	m1, err := sim.NewMachine("M1", 0, "A")
	require.NoError(t, err)
	wc, err := sim.NewWorkcenter("W1", 0, "A", []sim.Machine{m1})
	require.NoError(t, err)

	sys := sim.NewSystem()
	require.NoError(t, sys.AddWorkcenter(wc))
	for _, js := range []struct {
		id      string
		due, pt float64
		weight  float64
	}{{"A", 10, 5, 2}, {"B", 5, 3, 1}} {
		op, err := sim.NewOperation("W1", js.pt, "A")
		require.NoError(t, err)
		j, err := sim.NewJob(js.id, 0, js.due, js.weight, []sim.Operation{op})
		require.NoError(t, err)
		require.NoError(t, sys.AddJob(j))
	}

	res, err := sim.NewEngine().Simulate(context.Background(), sys, &sim.SPTPolicy{})
	require.NoError(t, err)
	return sys, res
}

func TestMachineDetails(t *testing.T) {
	_, res := sptRun(t)
	var buf bytes.Buffer
	require.NoError(t, MachineDetails(&buf, res.Schedule))

	want := "Schedule type: SPT\nTotal time: 8\nW1/M1: [B A]\n"
	assert.Equal(t, want, buf.String())
}

func TestJobDetails_RealizedTimes(t *testing.T) {
	sys, res := sptRun(t)
	var buf bytes.Buffer
	require.NoError(t, JobDetails(&buf, sys, res.Metrics))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Detailed Job Schedule:", lines[0])
	assert.Equal(t, []string{"ID", "Wght", "Rls", "Due", "Pr.tm.", "Stat.", "Bgn", "End", "T", "wT"}, strings.Fields(lines[1]))
	// jobs appear in system order
	assert.Equal(t, []string{"A", "2", "0", "10", "5", "A", "3", "8", "0", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"B", "1", "0", "5", "3", "A", "0", "3", "0", "0"}, strings.Fields(lines[3]))
}

func TestSequence_UsesAssignmentTimes(t *testing.T) {
	_, res := sptRun(t)
	var buf bytes.Buffer
	require.NoError(t, Sequence(&buf, res.Schedule, res.Assignments))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "M1", strings.TrimSpace(lines[2]))
	assert.Equal(t, []string{"B", "0", "0", "3", "3"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"A", "0", "3", "8", "5"}, strings.Fields(lines[4]))
}

func TestSummary(t *testing.T) {
	_, res := sptRun(t)
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, res.Metrics))

	out := buf.String()
	assert.Contains(t, out, "C_max     8\n")
	assert.Contains(t, out, "ΣU_j      0\n")
	assert.Contains(t, out, "ΣC_j      11\n")
	assert.Contains(t, out, "ΣwC_j     19\n")
}

func TestSummary_FractionalValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, &sim.Metrics{Cmax: 2.5, SumWT: 0.25}))
	assert.Contains(t, buf.String(), "C_max     2.5\n")
	assert.Contains(t, buf.String(), "ΣwT_j     0.25\n")
}

func TestWrite_AllSections(t *testing.T) {
	sys, res := sptRun(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sys, res))

	out := buf.String()
	for _, header := range []string{"Schedule type:", "Detailed Job Schedule:", "Job Sequence per Machine:", "Summary:"} {
		assert.Contains(t, out, header)
	}
}
