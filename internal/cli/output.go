package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/pvplan/pvplan/internal/domain"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

// money formats a currency amount with thousands separators and cents.
func money(v float64) string { return humanize.FormatFloat("#,###.##", v) }

// points formats a volume figure without trailing zeros.
func points(v float64) string { return humanize.Commaf(v) }

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult writes a human-readable compensation summary.
func printResult(w io.Writer, res domain.CompensationResult) {
	fmt.Fprintf(w, "%-18s %s  %s\n", "Rank", cyan(res.Rank), faint(fmt.Sprintf("(%d%% discount)", res.DiscountPercent)))
	fmt.Fprintf(w, "%-18s %s\n", "Qualification", res.QualificationTime)
	fmt.Fprintf(w, "%-18s %s VP  %s\n", "Personal volume", points(res.PersonalVolume), faint("(turnover "+money(res.Turnover)+")"))
	fmt.Fprintf(w, "%-18s %s VP\n", "Total volume", points(res.TotalVolume))
	fmt.Fprintf(w, "%-18s %d  %s\n", "Royalty points", res.RoyaltyPoints, faint("(supervisor legs "+points(res.SupervisorLegVolume)+" VP)"))
	fmt.Fprintf(w, "%-18s %d members\n", "Downline", res.DownlineMembers)
	fmt.Fprintln(w)

	line := func(label, amount string) { fmt.Fprintf(w, "  %-26s %14s\n", label, amount) }
	line("Retail profit", money(res.RetailProfit))
	line("Wholesale profit", money(res.WholesaleProfit))
	line(fmt.Sprintf("Royalty (%d%%)", res.RoyaltyPercent), money(res.RoyaltyEarnings))
	line(fmt.Sprintf("Production bonus (%d%%)", res.ProductionBonusPercent), money(res.ProductionBonus))
	fmt.Fprintf(w, "  %-26s %s\n", bold("Total"), green(fmt.Sprintf("%14s", money(res.TotalEarnings))))
	fmt.Fprintln(w)

	if res.Next == nil {
		fmt.Fprintln(w, "Top rank reached.")
		return
	}
	unit := "VP"
	if res.Next.GapUnit == domain.GapRoyaltyPoints {
		unit = "royalty points"
	}
	fmt.Fprintf(w, "Next: %s (%d%% discount, %s)\n", cyan(res.Next.Rank), res.Next.DiscountPercent, res.Next.QualificationTime)
	fmt.Fprintf(w, "  %s %s to go, would earn %s\n", points(res.Next.Gap), unit, green(money(res.Next.PotentialEarnings)))
}

// printContributions writes the per-member table.
func printContributions(w io.Writer, cs []domain.Contribution) {
	t := newTable(w, []string{"Depth", "Member", "Rank", "Volume", "Wholesale", "Royalty", "Bonus", "Total"})
	for _, c := range cs {
		name := c.Name
		if name == "" {
			name = c.MemberID
		}
		t.Append([]string{
			strconv.Itoa(c.Depth), name, c.Rank.String(), points(c.Volume),
			money(c.Wholesale), money(c.Royalty), money(c.ProductionBonus), money(c.Total()),
		})
	}
	t.Render()
}

// printLevels writes the per-depth breakdown.
func printLevels(w io.Writer, levels []domain.LevelSummary) {
	t := newTable(w, []string{"Depth", "Members", "Volume", "Turnover"})
	for _, l := range levels {
		t.Append([]string{strconv.Itoa(l.Depth), humanize.Comma(int64(l.Members)), points(l.Volume), money(l.Turnover)})
	}
	t.Render()
}

// printRanks writes the rank table.
func printRanks(w io.Writer) {
	t := newTable(w, []string{"Rank", "Discount", "Production bonus", "Royalty points", "Qualification"})
	for _, info := range domain.Ranks() {
		threshold := "-"
		if info.RoyaltyThreshold > 0 {
			threshold = humanize.Comma(int64(info.RoyaltyThreshold))
		}
		t.Append([]string{
			info.Name,
			strconv.Itoa(info.DiscountPercent) + "%",
			strconv.Itoa(info.ProductionBonusPercent) + "%",
			threshold,
			info.QualificationTime,
		})
	}
	t.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	t.SetColumnSeparator(" ")
	t.SetHeaderLine(true)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}
