package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wfunc/feed-the-cat/internal/food"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "查看当前食盆状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.RequestTimeout)
			defer cancel()

			state, err := newAPIClient().FoodState(ctx)
			if err != nil {
				return err
			}

			pct := food.BowlPercentage(state.FoodAmount, cfg.Food.BowlCapacity)
			c := color.New(color.FgGreen, color.Bold)
			if state.FoodAmount <= 0 {
				c = color.New(color.FgRed, color.Bold)
			}
			c.Printf("\n%s %.2f / %.0f (%.0f%%)\n\n", bowlBar(pct, 30), state.FoodAmount, cfg.Food.BowlCapacity, pct)

			snap := state.Snapshot()
			emptyAt := "-"
			if at, ok := snap.Counter().DepletesAt(); ok && state.FoodAmount > 0 {
				emptyAt = at.Local().Format(time.RFC3339)
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Field", "Value"}),
			)
			table.Append([]string{"food_amount", fmt.Sprintf("%.3f", state.FoodAmount)})
			table.Append([]string{"last_consumed_at", state.LastConsumedAt.Local().Format(time.RFC3339Nano)})
			table.Append([]string{"consumption_rate", fmt.Sprintf("%.2f/s", state.ConsumptionRate)})
			table.Append([]string{"elapsed_seconds", fmt.Sprintf("%.3f", state.ElapsedSeconds)})
			table.Append([]string{"empty_at", emptyAt})
			table.Render()
			return nil
		},
	}
}
