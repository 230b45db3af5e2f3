package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wfunc/feed-the-cat/internal/client"
	"github.com/wfunc/feed-the-cat/internal/config"
	"github.com/wfunc/feed-the-cat/internal/logger"
)

var (
	configPath string
	serverURL  string
	statePath  string
	verbose    bool

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "feeder",
		Short: "Feed the Cat command line client",
		Long: `Feeds the global cat bowl from the terminal. Clicks are batched
locally and the bowl level is interpolated between server updates.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "服务端地址，覆盖 client.base_url")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "本地状态文件，覆盖 client.state_path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(newPlayCmd(), newStateCmd(), newLeaderboardCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if serverURL != "" {
		loaded.Client.BaseURL = serverURL
	}
	if statePath != "" {
		loaded.Client.StatePath = statePath
	}

	// 终端输出给渲染用，日志默认只留警告
	loaded.Log.Output = "stdout"
	loaded.Log.Format = "console"
	loaded.Log.Level = "warn"
	if verbose {
		loaded.Log.Level = "debug"
	}
	if err := logger.Init(&loaded.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	cfg = loaded
	return nil
}

func newAPIClient() *client.APIClient {
	return client.NewAPIClient(cfg.Client.BaseURL, cfg.Client.RequestTimeout)
}
