package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wfunc/feed-the-cat/internal/client"
	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/food"
)

func newPlayCmd() *cobra.Command {
	var (
		clicks   int
		perSec   float64
		linger   time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "模拟连续点击食盆",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clicks < 1 {
				return fmt.Errorf("--clicks 必须大于0")
			}
			if perSec <= 0 {
				return fmt.Errorf("--rate 必须大于0")
			}
			return runPlay(cmd.Context(), clicks, perSec, linger, interval)
		},
	}

	cmd.Flags().IntVarP(&clicks, "clicks", "n", 30, "点击次数")
	cmd.Flags().Float64VarP(&perSec, "rate", "r", 5, "每秒点击次数")
	cmd.Flags().DurationVar(&linger, "watch", 5*time.Second, "点击结束后继续观察的时间")
	cmd.Flags().DurationVar(&interval, "render", 250*time.Millisecond, "刷新间隔")
	return cmd
}

func runPlay(parent context.Context, clicks int, perSec float64, linger, interval time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := client.LoadSession(cfg.Client.StatePath)
	if err != nil {
		return err
	}
	country := client.ResolveCountry(ctx, sess, client.NewCountryResolver(cfg.Client.GeoURL, cfg.Client.RequestTimeout))

	title := color.New(color.FgCyan, color.Bold)
	title.Println("\n /\\_/\\   Feed the Cat")
	title.Println("( o.o )")
	title.Println(" > ^ <")
	fmt.Printf("访客: %s | 国家: %s (%s) | 本地积分: %d\n\n", sess.GuestID(), country.Name, country.Code, sess.Score())

	// 中断后仍提交剩余点击
	game := client.NewGame(context.Background(), &cfg.Client, &cfg.Food, newAPIClient(), sess, country, clock.New())

	watchCtx, cancelWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = game.Run(watchCtx)
	}()

	r := newRenderer(game)
	clickEvery := time.Duration(float64(time.Second) / perSec)
	clickTicker := time.NewTicker(clickEvery)
	defer clickTicker.Stop()
	renderTicker := time.NewTicker(interval)
	defer renderTicker.Stop()

	sent := 0
	var lingerUntil <-chan time.Time

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-clickTicker.C:
			if sent >= clicks {
				continue
			}
			game.Click()
			sent++
			if sent == clicks {
				lingerUntil = time.After(linger)
			}
		case <-renderTicker.C:
			r.render(sent, clicks)
		case <-lingerUntil:
			break loop
		}
	}

	game.Close()
	cancelWatch()
	<-watchDone

	r.render(sent, clicks)
	fmt.Println()
	color.New(color.FgGreen, color.Bold).Printf("\n✓ 已点击 %d 次，本地积分 %d\n", sent, sess.Score())
	return nil
}

// renderer 单行刷新食盆和猫的状态
type renderer struct {
	game    *client.Game
	message *messageRotator
}

func newRenderer(game *client.Game) *renderer {
	return &renderer{game: game, message: newMessageRotator()}
}

func (r *renderer) render(sent, total int) {
	state := r.game.Cat.State()
	pct := r.game.BowlPercentage()

	fmt.Printf("\r\033[K%s %s %6.1f | %s | 点击 %d/%d | 积分 %d",
		catColor(state).Sprintf("%-8s", state),
		bowlBar(pct, 20),
		r.game.FoodAmount(),
		r.message.next(state),
		sent, total,
		r.game.Session.Score(),
	)
}

func catColor(state food.CatState) *color.Color {
	switch state {
	case food.CatEating:
		return color.New(color.FgGreen, color.Bold)
	case food.CatReacting:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed)
	}
}

func bowlBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return "[" + string(bar) + "]"
}
