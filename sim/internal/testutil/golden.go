// Package testutil provides shared test infrastructure for the dispatch
// simulator. It holds the golden scenario dataset types and assertion helpers
// used across sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one system dispatched under one policy.
// System is kept raw so this package does not depend on sim.
type GoldenTestCase struct {
	Name     string          `json:"name"`
	Policy   string          `json:"policy"`
	System   json.RawMessage `json:"system"`
	Expected GoldenSchedule  `json:"expected"`
	Metrics  GoldenMetrics   `json:"metrics"`
}

// GoldenSchedule is the expected schedule output.
type GoldenSchedule struct {
	ScheduleType string          `json:"schedule_type"`
	Time         float64         `json:"time"`
	Machines     []GoldenMachine `json:"machines"`
}

// GoldenMachine is one expected machine sequence.
type GoldenMachine struct {
	Workcenter string   `json:"workcenter"`
	Machine    string   `json:"machine"`
	Operations []string `json:"operations"`
}

// GoldenMetrics holds the expected objective values.
type GoldenMetrics struct {
	SumC      float64 `json:"sum_c"`
	TardyJobs int     `json:"sum_u"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
