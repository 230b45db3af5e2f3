package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newLeaderboardCmd() *cobra.Command {
	var (
		limit  int
		all    bool
		follow bool
	)

	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"top"},
		Short:   "查看国家排行榜",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !follow {
				return printLeaderboard(limit, all)
			}

			// 按 client.leaderboard_poll 刷新直到中断
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(cfg.Client.LeaderboardPoll)
			defer ticker.Stop()
			for {
				if err := printLeaderboard(limit, all); err != nil {
					color.New(color.FgRed).Printf("刷新失败: %v\n", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "返回条数")
	cmd.Flags().BoolVar(&all, "all", false, "返回全部国家")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "持续刷新")
	return cmd
}

func printLeaderboard(limit int, all bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.RequestTimeout)
	defer cancel()

	rows, err := newAPIClient().Leaderboard(ctx, limit, all)
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Println("\n🏆 Top Feeders")
	if len(rows) == 0 {
		fmt.Println("   暂无数据")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Code", "Country", "Score"}),
	)
	for i, row := range rows {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			row.CountryCode,
			row.CountryName,
			fmt.Sprintf("%d", row.Score),
		})
	}
	table.Render()
	return nil
}
