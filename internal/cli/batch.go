package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvplan/pvplan/internal/app/batch"
	"github.com/pvplan/pvplan/internal/app/roster"
	"github.com/pvplan/pvplan/internal/domain"
)

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Int("workers", 0, "Parallel computations (default [simulation].batch_workers)")
	batchCmd.Flags().Bool("json", false, "Print outcomes as JSON")
}

var batchCmd = &cobra.Command{
	Use:   "batch ROSTER...",
	Short: "Compute several roster files side by side",
	Long: `Compute every roster file concurrently and print one summary row per file.
Rows with the same digest describe identical results.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// batchRow is the JSON form of an outcome.
type batchRow struct {
	batch.Outcome
	Error string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Simulation.BatchWorkers
	}
	bc := batch.DefaultConfig()
	bc.MaxConcurrent = workers
	bc.MaxDepth = cfg.Simulation.MaxDepth

	load := func(_ context.Context, path string) (domain.PlanInput, error) {
		return roster.Load(path)
	}
	r := batch.New(bc, load, roster.Validate)
	outcomes, err := r.Run(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		rows := make([]batchRow, len(outcomes))
		for i, o := range outcomes {
			if o.Result != nil {
				o.Result.Contributions = nil
			}
			rows[i] = batchRow{Outcome: o}
			if o.Err != nil {
				rows[i].Error = o.Err.Error()
			}
		}
		return printJSON(out, rows)
	}

	t := newTable(out, []string{"Roster", "Rank", "Total volume", "Earnings", "Next", "Digest"})
	for _, o := range outcomes {
		if o.Err != nil {
			t.Append([]string{o.Source, red("error"), "-", "-", o.Err.Error(), "-"})
			continue
		}
		res := o.Result
		next := "-"
		if res.Next != nil {
			next = res.Next.Rank.String()
		}
		t.Append([]string{o.Source, res.Rank.String(), points(res.TotalVolume), money(res.TotalEarnings), next, o.Digest[:12]})
	}
	t.Render()

	if s := r.Stats(); s.Failed > 0 {
		return fmt.Errorf("%d of %d rosters failed", s.Failed, len(args))
	}
	return nil
}
