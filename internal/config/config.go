package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Food     FoodConfig     `mapstructure:"food"`
	Client   ClientConfig   `mapstructure:"client"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	System   SystemConfig   `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis配置（多实例限流与推送扇出）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// FoodConfig 全局食物配置
type FoodConfig struct {
	ConsumptionRate float64 `mapstructure:"consumption_rate"` // 每秒消耗量
	FoodPerClick    int     `mapstructure:"food_per_click"`
	BowlCapacity    float64 `mapstructure:"bowl_capacity"`
	InitialAmount   float64 `mapstructure:"initial_amount"`
	Bootstrap       bool    `mapstructure:"bootstrap"`     // 启动时创建单行状态
	UpdateMode      string  `mapstructure:"update_mode"`   // overwrite, versioned
	MaxCASRetries   int     `mapstructure:"max_cas_retries"`
}

// ClientConfig 客户端配置
type ClientConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	StatePath         string        `mapstructure:"state_path"`
	GeoURL            string        `mapstructure:"geo_url"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	IdleFlushDelay    time.Duration `mapstructure:"idle_flush_delay"`
	MaxBatchDuration  time.Duration `mapstructure:"max_batch_duration"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	FeedingLinger     time.Duration `mapstructure:"feeding_linger"`
	ReactionDuration  time.Duration `mapstructure:"reaction_duration"`
	LeaderboardPoll   time.Duration `mapstructure:"leaderboard_poll"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 限流配置（按访客ID的固定窗口）
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"` // memory, redis
	Window        time.Duration `mapstructure:"window"`
	MaxRequests   int           `mapstructure:"max_requests"`
	CleanupPeriod time.Duration `mapstructure:"cleanup_period"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})

	return err
}

// Load 加载配置但不写入全局实例（CLI与测试使用）
func Load(configPath string) (*Config, error) {
	_, loaded, err := load(configPath)
	return loaded, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	vp := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	// 设置环境变量前缀
	vp.SetEnvPrefix("FEEDACAT")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	// 读取配置文件，不存在时使用默认配置
	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigLoad, "读取配置文件")
		}
	}

	loaded := &Config{}
	if err := vp.Unmarshal(loaded); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigLoad, "解析配置")
	}
	if err := loaded.Validate(); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigValidate)
	}

	return vp, loaded, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/feedacat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// Redis默认配置
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "feedacat:food_state")

	// 食物默认配置
	v.SetDefault("food.consumption_rate", food.DefaultConsumptionRate)
	v.SetDefault("food.food_per_click", food.DefaultFoodPerClick)
	v.SetDefault("food.bowl_capacity", food.DefaultBowlCapacity)
	v.SetDefault("food.initial_amount", 0.0)
	v.SetDefault("food.bootstrap", true)
	v.SetDefault("food.update_mode", "overwrite")
	v.SetDefault("food.max_cas_retries", 3)

	// 客户端默认配置
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.state_path", "./data/feeder-state.json")
	v.SetDefault("client.geo_url", "https://ipapi.co/json/")
	v.SetDefault("client.poll_interval", "2s")
	v.SetDefault("client.idle_flush_delay", "2s")
	v.SetDefault("client.max_batch_duration", "10s")
	v.SetDefault("client.tick_interval", "100ms")
	v.SetDefault("client.feeding_linger", "5s")
	v.SetDefault("client.reaction_duration", "500ms")
	v.SetDefault("client.leaderboard_poll", "10s")
	v.SetDefault("client.request_timeout", "10s")
	v.SetDefault("client.reconnect_interval", "3s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "feedacat.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 限流默认配置
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.backend", "memory")
	v.SetDefault("security.rate_limit.window", "1s")
	v.SetDefault("security.rate_limit.max_requests", 10)
	v.SetDefault("security.rate_limit.cleanup_period", "1m")
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Food.ConsumptionRate < 0 {
		return fmt.Errorf("food.consumption_rate 不能为负数: %v", c.Food.ConsumptionRate)
	}
	if c.Food.FoodPerClick < 1 {
		return fmt.Errorf("food.food_per_click 必须大于0: %d", c.Food.FoodPerClick)
	}
	switch c.Food.UpdateMode {
	case "overwrite", "versioned":
	default:
		return fmt.Errorf("不支持的 food.update_mode: %s", c.Food.UpdateMode)
	}
	switch c.Security.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("不支持的限流后端: %s", c.Security.RateLimit.Backend)
	}
	if c.Security.RateLimit.Backend == "redis" && c.Security.RateLimit.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("限流后端为redis时必须启用redis")
	}
	if c.Security.RateLimit.Window <= 0 || c.Security.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("限流窗口和最大请求数必须大于0")
	}
	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置校验失败，忽略本次变更: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// ConfigFile 实际使用的配置文件，未读取文件时为空
func ConfigFile() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
