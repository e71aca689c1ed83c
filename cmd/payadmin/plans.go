package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// defaultPlans is the starter catalog written by "plans seed".
var defaultPlans = []struct {
	ID       string
	Name     string
	Price    int64
	Features []string
}{
	{"starter", "Starter", 499, []string{"sd", "single-device"}},
	{"pro", "Pro", 999, []string{"hd", "offline", "two-devices"}},
	{"family", "Family", 1599, []string{"hd", "offline", "five-devices"}},
}

func plansCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect and seed the plan catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all plans, including retired ones",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			plans, err := a.plans.List(ctx, false)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tACTIVE\tFEATURES")
			for _, p := range plans {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", p.ID, p.Name, formatAmount(p.Price, p.Currency), p.Active, strings.Join(p.Features, ","))
			}
			return w.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the starter catalog when no plans exist",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			existing, err := a.plans.List(ctx, false)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Fprintf(out, "%d plans already present. No changes.\n", len(existing))
				return nil
			}
			for _, s := range defaultPlans {
				p, err := a.plans.Create(ctx, s.ID, s.Name, s.Price, "", s.Features)
				if err != nil {
					return fmt.Errorf("create %s: %w", s.ID, err)
				}
				fmt.Fprintf(out, "created %s (%s)\n", p.ID, formatAmount(p.Price, p.Currency))
			}
			return nil
		}),
	})
	return cmd
}
