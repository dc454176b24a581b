package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/acodispatch/core/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the configured vehicles",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := fleet.NewRegistry(cfg.Fleet.Classes, cfg.Grid.Depot)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLASS\tCAPACITY\tTARE_KG\tFUEL\tPOSITION")
	for _, v := range reg.Snapshot() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%s\n", v.ID, v.Class, v.Capacity, v.TareKg, v.FuelCapacity, v.Position)
	}
	return w.Flush()
}
