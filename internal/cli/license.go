package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pvplan/pvplan/internal/app/license"
	"github.com/pvplan/pvplan/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(licenseCmd)
	licenseCmd.AddCommand(licenseIssueCmd)
	licenseCmd.AddCommand(licenseAddCmd)
	licenseCmd.AddCommand(licenseCheckCmd)
	licenseCmd.AddCommand(licenseRevokeCmd)
	licenseCmd.AddCommand(licenseListCmd)

	licenseIssueCmd.Flags().String("holder", "", "Who the code is issued to")
	licenseIssueCmd.Flags().Duration("ttl", 0, "Validity period, e.g. 720h (0 = never expires)")

	licenseAddCmd.Flags().String("holder", "", "Who the code is issued to")
	licenseAddCmd.Flags().String("expires", "", "Expiry date YYYY-MM-DD (empty = never)")

	licenseCheckCmd.Flags().Bool("json", false, "Print the status as JSON")
	licenseListCmd.Flags().Bool("json", false, "Print the registry as JSON")
}

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Manage access codes in the license registry",
	Long: `Manage the access codes stored in the license registry
($PVPLAN_HOME/pvplan.db unless [license].database says otherwise).`,
}

// openLicenses opens the registry and returns the service plus a closer.
func openLicenses() (*license.Service, func() error, error) {
	db, err := sqlite.Open(cfg.LicenseDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open license registry: %w", err)
	}
	return license.NewService(db), db.Close, nil
}

// ─── license issue ──────────────────────────────────────────────────────────

var licenseIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Generate and store a new code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, _ := cmd.Flags().GetString("holder")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		svc, closeDB, err := openLicenses()
		if err != nil {
			return err
		}
		defer closeDB()

		l, err := svc.Issue(holder, ttl)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", green("Issued"), bold(l.Code))
		if !l.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "  expires %s\n", l.ExpiresAt.Format(time.DateOnly))
		}
		return nil
	},
}

// ─── license add ────────────────────────────────────────────────────────────

var licenseAddCmd = &cobra.Command{
	Use:   "add CODE",
	Short: "Register an externally issued code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, _ := cmd.Flags().GetString("holder")
		expires, _ := cmd.Flags().GetString("expires")

		var expiresAt time.Time
		if expires != "" {
			t, err := time.Parse(time.DateOnly, expires)
			if err != nil {
				return fmt.Errorf("invalid --expires %q: want YYYY-MM-DD", expires)
			}
			expiresAt = t.UTC()
		}

		svc, closeDB, err := openLicenses()
		if err != nil {
			return err
		}
		defer closeDB()

		l, err := svc.Add(args[0], holder, expiresAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Added"), bold(l.Code))
		return nil
	},
}

// ─── license check ──────────────────────────────────────────────────────────

var licenseCheckCmd = &cobra.Command{
	Use:   "check CODE",
	Short: "Report whether a code is valid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, closeDB, err := openLicenses()
		if err != nil {
			return err
		}
		defer closeDB()

		st, err := svc.Check(args[0], time.Now())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, st)
		}
		if !st.Valid {
			fmt.Fprintf(out, "%s %s\n", red("invalid"), faint("("+st.Reason+")"))
			return nil
		}
		fmt.Fprintf(out, "%s", green("valid"))
		if st.Holder != "" {
			fmt.Fprintf(out, "  holder %s", st.Holder)
		}
		if st.ExpiresAt != nil {
			fmt.Fprintf(out, "  expires %s", humanize.Time(*st.ExpiresAt))
		}
		fmt.Fprintln(out)
		return nil
	},
}

// ─── license revoke ─────────────────────────────────────────────────────────

var licenseRevokeCmd = &cobra.Command{
	Use:   "revoke CODE",
	Short: "Invalidate a code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openLicenses()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := svc.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("Revoked"), args[0])
		return nil
	},
}

// ─── license list ───────────────────────────────────────────────────────────

var licenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored codes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, closeDB, err := openLicenses()
		if err != nil {
			return err
		}
		defer closeDB()

		list, err := svc.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No codes registered.")
			return nil
		}

		now := time.Now()
		t := newTable(out, []string{"Code", "Holder", "Issued", "Expires", "Status"})
		for _, l := range list {
			expires := "never"
			if !l.ExpiresAt.IsZero() {
				expires = l.ExpiresAt.Format(time.DateOnly)
			}
			status := "valid"
			switch {
			case l.Revoked:
				status = license.ReasonRevoked
			case l.Expired(now):
				status = license.ReasonExpired
			}
			t.Append([]string{l.Code, l.Holder, l.IssuedAt.Format(time.DateOnly), expires, status})
		}
		t.Render()
		return nil
	},
}
