package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listHistory(cmd.Context(), historyDB, historyLimit, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("History failed: %v", err)
		}
	},
}

func listHistory(ctx context.Context, path string, limit int, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs stored.")
		return err
	}
	fmt.Fprintf(w, "%-42s %-8s %-9s %-5s %s\n", "ID", "Policy", "Makespan", "Jobs", "Created")
	for _, r := range runs {
		fmt.Fprintf(w, "%-42s %-8s %-9s %-5s %s\n",
			r.ID, r.Policy, humanize.Ftoa(r.Makespan), humanize.Comma(int64(r.Jobs)), humanize.Time(r.CreatedAt))
	}
	return nil
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "", "SQLite database for run history")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	_ = historyCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(historyCmd)
}
