package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "Inspect sent markers",
}

var sentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently sent alerts",
	RunE:  runSentList,
}

var sentCheckCmd = &cobra.Command{
	Use:   "check <alert-id>",
	Short: "Report whether an alert has been sent",
	Args:  cobra.ExactArgs(1),
	RunE:  runSentCheck,
}

func init() {
	rootCmd.AddCommand(sentCmd)
	sentCmd.AddCommand(sentListCmd)
	sentCmd.AddCommand(sentCheckCmd)

	sentListCmd.Flags().IntP("limit", "n", 20, "Number of markers to show")
}

func runSentList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list sent markers: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No alerts sent yet.")
		return nil
	}

	loc := cfg.Location()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ALERT\tSENT AT\tEFFECT\tSEVERITY\tHEADER\n")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.AlertID, r.SentAt.In(loc).Format(time.DateTime),
			r.Alert.EffectName, r.Alert.Severity, r.Alert.HeaderText,
		)
	}
	w.Flush()

	return nil
}

func runSentCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id := model.AlertID(args[0])
	found, err := store.Lookup(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("check sent marker: %w", err)
	}

	if found {
		fmt.Printf("Alert %s has been sent.\n", id)
	} else {
		fmt.Printf("Alert %s has not been sent.\n", id)
	}
	return nil
}
