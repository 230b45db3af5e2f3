package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wfunc/feed-the-cat/internal/api"
	"github.com/wfunc/feed-the-cat/internal/clock"
	"github.com/wfunc/feed-the-cat/internal/config"
	"github.com/wfunc/feed-the-cat/internal/database"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/logger"
	"github.com/wfunc/feed-the-cat/internal/notify"
	"github.com/wfunc/feed-the-cat/internal/ratelimit"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"github.com/wfunc/feed-the-cat/internal/service"
	"github.com/wfunc/feed-the-cat/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	// 配置热更新在 viper 监听协程中替换
	cfg    atomic.Pointer[config.Config]
	logger *zap.Logger
	clock  clock.Clock

	db         *gorm.DB
	rdb        *redis.Client
	services   *service.Services
	limiter    ratelimit.Limiter
	hub        *websocket.Hub
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	setupSystem(&cfg.System)
	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.LogError(err, "服务器关闭失败")
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		logger:     logger.GetLogger(),
		clock:      clock.New(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.cfg.Store(cfg)
	return s
}

// conf 当前生效的配置
func (s *Server) conf() *config.Config {
	return s.cfg.Load()
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动喂猫服务器...",
		zap.String("version", Version),
		zap.String("mode", s.conf().Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "初始化组件失败")
	}

	if err := s.startServices(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "启动服务失败")
	}

	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功", zap.String("http", s.conf().Server.Addr()))
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	if err := s.initDatabase(); err != nil {
		return err
	}

	if s.conf().Redis.Enabled {
		rdb, err := database.OpenRedis(s.ctx, &s.conf().Redis)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "连接Redis失败")
		}
		s.rdb = rdb
		s.logger.Info("Redis已连接", zap.String("address", s.conf().Redis.Address))
	}

	s.hub = websocket.NewHub(logger.GetModuleLogger("websocket"))

	// 多实例部署时经 Redis 扇出，单实例直接推给本地 hub
	var notifier notify.Notifier = notify.NewHubNotifier(s.hub)
	if s.rdb != nil {
		notifier = notify.NewRedisNotifier(s.rdb, s.conf().Redis.Channel)
	}

	s.services = service.NewServices(
		repository.NewManager(s.db),
		notifier,
		s.clock,
		service.ConfigFromFood(&s.conf().Food),
		logger.GetModuleLogger("feed"),
	)

	if s.conf().Food.Bootstrap {
		if _, err := s.services.Food.Bootstrap(s.ctx, s.conf().Food.InitialAmount, s.conf().Food.ConsumptionRate); err != nil {
			return err
		}
	}

	limiter, err := ratelimit.New(&s.conf().Security.RateLimit, s.rdb, s.clock)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrConfigValidate, "创建限流器失败")
	}
	s.limiter = limiter

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.conf().Database); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	s.db = database.GetDB()

	if s.conf().Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(s.db); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err := database.Ping(ctx, s.db); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// startServices 启动服务
func (s *Server) startServices() error {
	s.logger.Info("启动服务...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	if s.rdb != nil {
		ready := make(chan struct{})
		sub := notify.NewRedisNotifier(s.rdb, s.conf().Redis.Channel)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := sub.Subscribe(s.ctx, s.hub, ready); err != nil && s.ctx.Err() == nil {
				s.logger.Error("订阅食物状态失败", zap.Error(err))
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			return apperrors.New(apperrors.ErrTimeout, "订阅Redis频道超时")
		}
	}

	if mem, ok := s.limiter.(*ratelimit.MemoryLimiter); ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			mem.RunJanitor(s.ctx, s.conf().Security.RateLimit.CleanupPeriod)
		}()
	}

	gin.SetMode(ginMode(s.conf().Server.Mode))
	router := api.NewRouter(api.Options{
		DB:       s.db,
		Services: s.services,
		Limiter:  s.limiter,
		Hub:      s.hub,
		Origins:  s.conf().Server.AllowedOrigins,
		Logger:   logger.GetModuleLogger("http"),
	})

	s.httpServer = &http.Server{
		Addr:         s.conf().Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.conf().Server.ReadTimeout,
		WriteTimeout: s.conf().Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("HTTP服务监听", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()

	s.logger.Info("所有服务启动完成")
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务异常，准备退出")
	}

	close(s.shutdownCh)
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.conf().Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
		}
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return apperrors.New(apperrors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	s.logger.Info("关闭组件...")

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("关闭Redis失败", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
}

// reloadConfig 应用可热更新的配置：日志级别、限流参数和消耗速率
func (s *Server) reloadConfig(newCfg *config.Config) {
	old := s.cfg.Swap(newCfg)

	logger.SetLevel(newCfg.Log.Level)

	if u, ok := s.limiter.(ratelimit.Updater); ok {
		rl := newCfg.Security.RateLimit
		u.Update(rl.Window, rl.MaxRequests)
	}

	if newCfg.Food.ConsumptionRate != old.Food.ConsumptionRate {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		if err := s.services.Food.ApplyRate(ctx, newCfg.Food.ConsumptionRate); err != nil {
			s.logger.Error("切换消耗速率失败", zap.Error(err))
		} else {
			s.logger.Info("消耗速率已切换",
				zap.Float64("old", old.Food.ConsumptionRate),
				zap.Float64("new", newCfg.Food.ConsumptionRate))
		}
	}

	s.logger.Info("配置重新加载完成")
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

// ginMode 服务模式映射到 gin 模式
func ginMode(mode string) string {
	switch mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("喂猫服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("喂猫服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  feedacat-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  FEEDACAT_SERVER_PORT              监听端口")
	fmt.Println("  FEEDACAT_DATABASE_DSN             数据库连接串")
	fmt.Println("  FEEDACAT_FOOD_CONSUMPTION_RATE    每秒消耗量")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  feedacat-server -config=config/config.yaml")
	fmt.Println("  feedacat-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
 /\_/\   Feed the Cat
( o.o )  全局食盆服务
 > ^ <
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("配置文件: %s\n", config.ConfigFile())
	fmt.Printf("消耗速率: %.2f/s | 限流: %d 次/%s\n",
		cfg.Food.ConsumptionRate, cfg.Security.RateLimit.MaxRequests, cfg.Security.RateLimit.Window)
}
