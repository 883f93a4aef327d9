package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pvplan/pvplan/internal/app/compensation"
	"github.com/pvplan/pvplan/internal/app/roster"
	"github.com/pvplan/pvplan/internal/domain"
)

func init() {
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(ranksCmd)
	rootCmd.AddCommand(duplicateCmd)

	computeCmd.Flags().Float64("pv", 0, "Personal volume (overrides the roster file)")
	computeCmd.Flags().Bool("json", false, "Print the result as JSON")
	computeCmd.Flags().Bool("members", false, "Show what each downline member contributes")
	computeCmd.Flags().BoolP("watch", "w", false, "Recompute whenever the roster file changes")

	levelsCmd.Flags().Bool("json", false, "Print the breakdown as JSON")

	duplicateCmd.Flags().Int("directs", 3, "Direct recruits on the first level")
	duplicateCmd.Flags().Int("per-member", 3, "Recruits brought in by every member")
	duplicateCmd.Flags().Int("depth", 3, "Number of levels")
	duplicateCmd.Flags().Float64("volume", 100, "Volume points of every generated member")
	duplicateCmd.Flags().String("rank", "auto", "Rank of every generated member (auto = derived)")
	duplicateCmd.Flags().Float64("pv", 0, "Personal volume of the root")
	duplicateCmd.Flags().Bool("json", false, "Print the result as JSON")
	duplicateCmd.Flags().Bool("levels", false, "Also print the per-depth breakdown")
	duplicateCmd.Flags().StringP("output", "o", "", "Save the generated roster to a file (.toml, .json, .yaml)")
}

// ─── compute ────────────────────────────────────────────────────────────────

var computeCmd = &cobra.Command{
	Use:   "compute [ROSTER]",
	Short: "Compute rank and earnings for a roster",
	Long: `Compute the rank, discount and earnings for a personal volume and an
optional downline roster file. Without a roster the downline is empty.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompute,
}

func runCompute(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	members, _ := cmd.Flags().GetBool("members")
	watch, _ := cmd.Flags().GetBool("watch")
	out := cmd.OutOrStdout()

	run := func() error {
		in, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		res := compensation.Compute(in)
		if asJSON {
			return printJSON(out, res)
		}
		printResult(out, res)
		if members && len(res.Contributions) > 0 {
			fmt.Fprintln(out)
			printContributions(out, res.Contributions)
		}
		return nil
	}

	if err := run(); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("--watch needs a roster file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintln(out, faint("watching "+args[0]+", Ctrl+C to stop"))
	return watchRoster(ctx, args[0], func() error {
		fmt.Fprintln(out, faint("───"))
		return run()
	})
}

// readInput loads the roster named in args (if any) and applies --pv.
func readInput(cmd *cobra.Command, args []string) (domain.PlanInput, error) {
	in := domain.PlanInput{PersonalVolume: cfg.Simulation.DefaultPersonalVolume}
	if len(args) == 1 {
		loaded, err := roster.Load(args[0])
		if err != nil {
			return in, err
		}
		in = loaded
	}
	if cmd.Flags().Changed("pv") {
		in.PersonalVolume, _ = cmd.Flags().GetFloat64("pv")
	}
	if err := roster.Validate(in.Downline, cfg.Simulation.MaxDepth); err != nil {
		return in, err
	}
	return in, nil
}

// ─── levels ─────────────────────────────────────────────────────────────────

var levelsCmd = &cobra.Command{
	Use:   "levels ROSTER",
	Short: "Show members, volume and turnover per downline depth",
	Args:  cobra.ExactArgs(1),
	RunE:  runLevels,
}

func runLevels(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	levels := compensation.Levels(in.Downline)
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), levels)
	}
	if len(levels) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Empty downline.")
		return nil
	}
	printLevels(cmd.OutOrStdout(), levels)
	return nil
}

// ─── ranks ──────────────────────────────────────────────────────────────────

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "Print the rank table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printRanks(cmd.OutOrStdout())
		return nil
	},
}

// ─── duplicate ──────────────────────────────────────────────────────────────

var duplicateCmd = &cobra.Command{
	Use:   "duplicate",
	Short: "Simulate a uniformly duplicating network",
	Long: `Build a network where the root sponsors --directs people and every member
sponsors --per-member people, --depth levels deep, each with --volume points,
then compute the root's earnings.`,
	Args: cobra.NoArgs,
	RunE: runDuplicate,
}

func runDuplicate(cmd *cobra.Command, args []string) error {
	var plan roster.DuplicationPlan
	plan.Directs, _ = cmd.Flags().GetInt("directs")
	plan.PerMember, _ = cmd.Flags().GetInt("per-member")
	plan.Depth, _ = cmd.Flags().GetInt("depth")
	plan.Volume, _ = cmd.Flags().GetFloat64("volume")
	rankName, _ := cmd.Flags().GetString("rank")
	if err := plan.Rank.UnmarshalText([]byte(rankName)); err != nil {
		return err
	}
	pv, _ := cmd.Flags().GetFloat64("pv")

	downline, err := roster.Duplicate(plan)
	if err != nil {
		return err
	}
	if err := roster.Validate(downline, cfg.Simulation.MaxDepth); err != nil {
		return err
	}
	in := domain.PlanInput{PersonalVolume: pv, Downline: downline}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := roster.Save(path, in); err != nil {
			return err
		}
	}

	res := compensation.Compute(in)
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		res.Contributions = nil
		return printJSON(out, res)
	}

	fmt.Fprintf(out, "%s %s members over %d levels\n\n", bold("Network:"), points(float64(roster.Count(downline))), plan.Depth)
	printResult(out, res)
	if showLevels, _ := cmd.Flags().GetBool("levels"); showLevels {
		fmt.Fprintln(out)
		printLevels(out, compensation.Levels(downline))
	}
	return nil
}
