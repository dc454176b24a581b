package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/acodispatch/app"
	"github.com/kilianp07/acodispatch/core/solver"
	"github.com/kilianp07/acodispatch/infra/logger"
)

var (
	solveAt   int
	solveJSON bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run one route optimisation over the orders known at a minute",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().IntVar(&solveAt, "at", 0, "simulated minute of the solve")
	solveCmd.Flags().BoolVar(&solveJSON, "json", false, "print routes as JSON")
	rootCmd.AddCommand(solveCmd)
}

type solvedRoute struct {
	VehicleID string   `json:"vehicle_id"`
	Orders    []string `json:"orders"`
	Arrivals  []int    `json:"arrivals"`
	Distance  int      `json:"distance"`
	Cost      float64  `json:"cost"`
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	in, err := app.LoadInputs(cfg)
	if err != nil {
		return err
	}
	sim, _, err := app.BuildSim(cfg, in)
	if err != nil {
		return err
	}
	orders := sim.Orders.Activate(solveAt)
	var vehicles []solver.VehicleSnapshot
	for _, v := range sim.Fleet.All() {
		vehicles = append(vehicles, solver.SnapshotOf(v, sim.Resupply.Depot()))
	}
	s := solver.New(cfg.Solver, sim.Physics, solver.WithLogger(logger.New("solver")))
	routes := s.Solve(vehicles, orders, solveAt)
	if err := solver.Verify(sim.Physics, routes, vehicles, solveAt); err != nil {
		return err
	}

	out := make([]solvedRoute, 0, len(routes))
	assigned := 0
	for _, r := range routes {
		sr := solvedRoute{VehicleID: r.VehicleID, Arrivals: r.Arrivals, Distance: r.Distance, Cost: r.Cost}
		for _, o := range r.Orders {
			sr.Orders = append(sr.Orders, o.ID)
		}
		assigned += len(r.Orders)
		out = append(out, sr)
	}
	if solveJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VEHICLE\tORDERS\tARRIVALS\tDISTANCE\tCOST")
	for _, r := range out {
		_, _ = fmt.Fprintf(w, "%s\t%v\t%v\t%d\t%.3f\n", r.VehicleID, r.Orders, r.Arrivals, r.Distance, r.Cost)
	}
	_, _ = fmt.Fprintf(w, "%d of %d orders assigned, total cost %.3f\n", assigned, len(orders), solver.TotalCost(routes))
	return w.Flush()
}
