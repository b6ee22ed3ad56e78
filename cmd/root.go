package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dispatch-sim/dispatch-sim/sim"
	"github.com/dispatch-sim/dispatch-sim/sim/report"
	"github.com/dispatch-sim/dispatch-sim/sim/store"
	"github.com/dispatch-sim/dispatch-sim/sim/trace"
)

var (
	systemPath string // System file (.json, .yaml)
	policyName string // Built-in policy name or "expr"
	expression string // Priority expression for the expr policy
	configPath string // Run bundle YAML
	seed       int64  // Seed for color assignment
	outPath    string // Where to write the system with its schedule attached
	showReport bool   // Print the full text report
	traceOn    bool   // Record and summarize decisions
	dbPath     string // SQLite run history
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dispatch-sim",
	Short: "Dispatch-rule production scheduling simulator",
}

// runOptions is everything a run needs, resolved from flags and the run bundle.
type runOptions struct {
	SystemPath string
	Config     sim.RunConfig
	Seed       int64
	OutPath    string
	Report     bool
	DBPath     string
}

// runCmd dispatches one system under one policy
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Schedule a system with a dispatch policy",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		opts := runOptions{SystemPath: systemPath, Seed: seed, OutPath: outPath, Report: showReport, DBPath: dbPath}
		if configPath != "" {
			cfg, err := sim.LoadRunConfig(configPath)
			if err != nil {
				logrus.Fatalf("Failed to load run config: %v", err)
			}
			opts.Config = *cfg
			if cfg.Seed != nil && !cmd.Flags().Changed("seed") {
				opts.Seed = *cfg.Seed
			}
		}
		// Explicit flags win over the bundle.
		if cmd.Flags().Changed("policy") {
			opts.Config.Policy = policyName
		}
		if cmd.Flags().Changed("expr") {
			opts.Config.Expression = expression
		}
		if traceOn {
			opts.Config.TraceLevel = string(trace.TraceLevelDecisions)
		}

		if err := executeRun(cmd.Context(), opts, os.Stdout); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
	},
}

// executeRun loads the system, dispatches it, and writes the results to w.
func executeRun(ctx context.Context, opts runOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sys, err := sim.LoadSystem(opts.SystemPath)
	if err != nil {
		return err
	}
	sys.AssignColors(opts.Seed)

	policy, err := opts.Config.BuildPolicy()
	if err != nil {
		return err
	}

	eng := sim.NewEngine()
	traceCfg := trace.TraceConfig{Level: trace.TraceLevel(opts.Config.TraceLevel)}
	if traceCfg.Enabled() {
		eng.Trace = trace.NewDispatchTrace(traceCfg)
	}

	res, err := eng.Simulate(ctx, sys, policy)
	if err != nil {
		return err
	}
	sys.SetSchedule(res.Schedule)

	if opts.Report {
		err = report.Write(w, sys, res)
	} else {
		err = report.MachineDetails(w, res.Schedule)
		if err == nil {
			err = res.Metrics.SaveResults(w)
		}
	}
	if err != nil {
		return err
	}

	if eng.Trace != nil {
		if err := writeTraceSummary(w, trace.Summarize(eng.Trace)); err != nil {
			return err
		}
	}

	if opts.OutPath != "" {
		if err := writeSystem(opts.OutPath, sys); err != nil {
			return err
		}
		logrus.Infof("Wrote scheduled system to %s", opts.OutPath)
	}

	if opts.DBPath != "" {
		id, err := saveRun(ctx, opts.DBPath, sys, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved run %s\n", id)
	}
	return nil
}

func writeTraceSummary(w io.Writer, s *trace.TraceSummary) error {
	if _, err := fmt.Fprintf(w, "\nTrace: %d decisions, %d assignments, eligible max %d mean %.2f\n",
		s.TotalDecisions, s.TotalAssignments, s.MaxEligible, s.MeanEligible); err != nil {
		return err
	}
	keys := make([]string, 0, len(s.MachineBusy))
	for k := range s.MachineBusy {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "  %-12s jobs=%d busy=%g util=%.1f%%\n",
			k, s.JobsPerMachine[k], s.MachineBusy[k], 100*s.MachineUtilization[k]); err != nil {
			return err
		}
	}
	return nil
}

func writeSystem(path string, sys *sim.System) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := sys.EncodeJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveRun(ctx context.Context, path string, sys *sim.System, res *sim.Result) (string, error) {
	st, err := openStore(ctx, path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	run := store.NewRun(sys, res)
	if err := st.SaveRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&systemPath, "system", "", "System file (.json, .yaml, .yml)")
	runCmd.Flags().StringVar(&policyName, "policy", "fcfs", "Dispatch policy (fcfs, spt, edd, wspt, expr)")
	runCmd.Flags().StringVar(&expression, "expr", "", "Priority expression for the expr policy; lowest value runs first")
	runCmd.Flags().StringVar(&configPath, "config", "", "Run bundle YAML (policy, expression, seed, trace_level, schedule_label)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for job and workcenter color assignment")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the system with its schedule attached to this JSON file")
	runCmd.Flags().BoolVar(&showReport, "report", false, "Print job, sequence, and summary tables")
	runCmd.Flags().BoolVar(&traceOn, "trace", false, "Record every decision and print a trace summary")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for run history")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	_ = runCmd.MarkFlagRequired("system")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
