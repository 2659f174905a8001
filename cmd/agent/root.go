package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/registers"
	"github.com/stats-collector/pkg/server"
	"github.com/stats-collector/pkg/signal"
	"github.com/stats-collector/pkg/util"
)

const projectName = "stats-collector"

// Version 构建时通过 -ldflags "-X" 注入
var Version = "dev"

var (
	cfgFile string
	once    bool
)

var rootCmd = &cobra.Command{
	Use:          projectName,
	Short:        "Host and service metrics collector (cpu/lsof/ps/netstat/MySQL/Redis/NGINX Plus)",
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			return fmt.Errorf("load config (check the path or pass -c): %w", err)
		}
		return run(cmd, cfg)
	},
}

// Execute 命令行入口
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "-> Config file path | 配置文件路径")
	rootCmd.Flags().BoolVar(&once, "once", false, "-> Run one collection cycle per collector and exit | 每个采集器执行一次后退出")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initSinkFlags(rootCmd)
	initLogFlags(rootCmd)
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	src := registers.DefaultSources(ctx, &cfg.Monitor)
	if once {
		return runOnce(ctx, cfg, src)
	}

	util.PrintBanner(cmd.OutOrStdout(), projectName, "blue", Version)

	rt, err := registers.InitAgent(ctx, true, cfg, src, true)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}

	httpServer := server.NewHTTPServer(cfg.Server, logger.GetGlobalLogger(), rt.Registry, rt.Memory)
	if err := httpServer.Start(); err != nil {
		return errors.Join(fmt.Errorf("start HTTP server: %w", err), shutdownAgent(cfg, rt))
	}

	// 关闭顺序：HTTP服务 → 采集调度 → 下发出口
	return signal.WaitForShutdown(ctx, func() error {
		return errors.Join(httpServer.Shutdown(), shutdownAgent(cfg, rt))
	})
}

func shutdownAgent(cfg *config.Config, rt *registers.Runtime) error {
	ctx, cancel := context.WithTimeout(context.Background(), registers.ShutdownTimeout(&cfg.Monitor))
	defer cancel()
	return errors.Join(rt.Agent.Shutdown(ctx), rt.Close())
}

// runOnce 单次模式：不启动 HTTP 服务和定时器，每个采集器执行一个周期
func runOnce(ctx context.Context, cfg *config.Config, src registers.Sources) error {
	rt, err := registers.InitAgent(ctx, false, cfg, src, false)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}
	defer func() { _ = rt.Close() }()
	defer func() { _ = rt.Agent.CloseAll() }()

	cctx, cancel := context.WithTimeout(ctx, registers.ShutdownTimeout(&cfg.Monitor))
	defer cancel()
	err = rt.Agent.CollectAll(cctx)
	logger.Info("single collection finished", zap.Bool("ok", err == nil))
	return err
}
