package client

import (
	"context"

	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/config"
	"github.com/wfunc/feed-the-cat/internal/food"
)

// Game 组装一个访客的客户端：点击合并、显示插值、猫状态和状态订阅
type Game struct {
	API          *APIClient
	Session      *Session
	Country      Country
	Batcher      *Batcher
	Interpolator *Interpolator
	Cat          *CatTracker
	Watcher      *Watcher

	bowlCapacity float64
}

// NewGame 创建客户端，submitCtx 用于投喂请求
func NewGame(submitCtx context.Context, cfg *config.ClientConfig, foodCfg *config.FoodConfig, api *APIClient, sess *Session, country Country, clk clock.Clock) *Game {
	if clk == nil {
		clk = clock.New()
	}

	g := &Game{
		API:          api,
		Session:      sess,
		Country:      country,
		bowlCapacity: foodCfg.BowlCapacity,
	}

	g.Batcher = NewBatcher(submitCtx, BatcherConfig{
		IdleFlushDelay:   cfg.IdleFlushDelay,
		MaxBatchDuration: cfg.MaxBatchDuration,
		FoodPerClick:     foodCfg.FoodPerClick,
	}, clk, g.send, sess)

	g.Interpolator = NewInterpolator(clk, cfg.TickInterval)
	g.Cat = NewCatTracker(clk, cfg.FeedingLinger, cfg.ReactionDuration)
	g.Interpolator.OnChange(g.Cat.SetAmount)

	g.Watcher = NewWatcher(api, WatcherConfig{
		PollInterval:      cfg.PollInterval,
		ReconnectInterval: cfg.ReconnectInterval,
	}, g.Interpolator.Resync, g.Batcher.Active)

	return g
}

func (g *Game) send(ctx context.Context, count int) error {
	_, err := g.API.Feed(ctx, &FeedRequest{
		GuestID:     g.Session.GuestID(),
		CountryCode: g.Country.Code,
		CountryName: g.Country.Name,
		Count:       count,
	})
	return err
}

// Click 点击食盆
func (g *Game) Click() {
	g.Cat.Clicked()
	g.Batcher.Click()
}

// Run 订阅食物状态直到 ctx 结束
func (g *Game) Run(ctx context.Context) error {
	return g.Watcher.Run(ctx)
}

// FoodAmount 当前显示的食物量
func (g *Game) FoodAmount() float64 {
	return g.Interpolator.Value()
}

// BowlPercentage 食盆填充百分比
func (g *Game) BowlPercentage() float64 {
	return food.BowlPercentage(g.Interpolator.Value(), g.bowlCapacity)
}

// Close 提交剩余点击并停止本地计时
func (g *Game) Close() {
	g.Batcher.Close()
	g.Interpolator.Stop()
	g.Cat.Stop()
}
