package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List route ids and the audience tag each maps to",
	RunE:  runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tags, err := initRouteMap(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ROUTE\tTAG\n")
	for _, r := range tags.Routes() {
		fmt.Fprintf(w, "%s\t%s\n", r.RouteID, r.Tag)
	}
	w.Flush()

	return nil
}
