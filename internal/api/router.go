package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feed-the-cat/internal/database"
	"github.com/wfunc/feed-the-cat/internal/middleware"
	"github.com/wfunc/feed-the-cat/internal/ratelimit"
	"github.com/wfunc/feed-the-cat/internal/service"
	"github.com/wfunc/feed-the-cat/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 路由依赖
type Options struct {
	DB       *gorm.DB
	Services *service.Services
	Limiter  ratelimit.Limiter
	Hub      *websocket.Hub
	// Origins 允许的跨域来源，空表示全部
	Origins []string
	Logger  *zap.Logger
}

// Router API路由器
type Router struct {
	engine             *gin.Engine
	db                 *gorm.DB
	services           *service.Services
	feedHandler        *FeedHandler
	foodHandler        *FoodHandler
	leaderboardHandler *LeaderboardHandler
	wsHandler          *websocket.Handler
	log                *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Noop{}
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(opts.Origins))

	router := &Router{
		engine:             engine,
		db:                 opts.DB,
		services:           opts.Services,
		feedHandler:        NewFeedHandler(opts.Services.Feed, opts.Limiter, opts.Logger),
		foodHandler:        NewFoodHandler(opts.Services.Food),
		leaderboardHandler: NewLeaderboardHandler(opts.Services.Leaderboard),
		log:                opts.Logger,
	}

	if opts.Hub != nil {
		router.wsHandler = websocket.NewHandler(opts.Hub, opts.Services.Food.Baseline, middleware.OriginAllowed(opts.Origins))
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	r.engine.POST("/feed", r.feedHandler.Feed)
	r.engine.GET("/food/state", r.foodHandler.State)
	r.engine.GET("/leaderboard", r.leaderboardHandler.List)

	if r.wsHandler != nil {
		r.engine.GET("/ws/food", r.wsHandler.ServeFood)
	}

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not Found"})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, r.db); err != nil {
		r.log.Warn("健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
