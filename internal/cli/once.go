package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll-and-process cycle",
	Long: `Run one cycle and print its report. With --dry-run the feed is fetched
and filtered, but the sent store is not touched and nothing is pushed.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().Bool("dry-run", false, "Evaluate alerts without recording or sending")
	onceCmd.Flags().Bool("json", false, "Print the report as JSON")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	logger := newLogger(cfg)
	a, err := initApp(cmd.Context(), cfg, logger, dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	var rep *pipeline.Report
	if dryRun {
		rep, err = a.runner.Evaluate(cmd.Context())
	} else {
		rep, err = a.runner.RunOnce(cmd.Context())
	}
	if rep != nil {
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(rep)
		} else {
			printReport(rep)
		}
	}
	return err
}

func printReport(rep *pipeline.Report) {
	fmt.Printf("Run %s\n", rep.RunID)
	switch {
	case rep.Quiet && !rep.DryRun:
		fmt.Println("  Quiet hours, nothing processed.")
		return
	case rep.Unchanged:
		fmt.Println("  Feed unchanged since last run.")
		return
	case rep.Error != "":
		fmt.Printf("  Error: %s\n", rep.Error)
		return
	}
	if rep.Quiet {
		fmt.Println("  Note: a real run would be suppressed by quiet hours.")
	}

	fmt.Printf("  Fetched: %d (malformed skipped: %d)\n", rep.Fetched, rep.Skipped)
	for _, s := range rep.Stages {
		fmt.Printf("  %-18s %d -> %d\n", s.Stage, s.Before, s.After)
	}

	if len(rep.Alerts) == 0 {
		fmt.Println("  No notify-worthy alerts.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\nALERT\tOUTCOME\tTAGS\tHEADER\n")
	for _, r := range rep.Alerts {
		outcome := "would send"
		if r.Outcome != nil {
			outcome = r.Outcome.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.AlertID, outcome, strings.Join(r.Tags, ", "), r.Header)
	}
	w.Flush()
}
