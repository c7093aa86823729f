/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/api"
	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Hub ANP API server.
The server listens on the configured host and port, accepts commands over
REST and streams task events over WebSocket and SSE.

When started with --config the file is watched: log level and
orchestrator.completion_delay are applied without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置,命令行参数优先
		cfg, configPath, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		// 2. 链路追踪
		if err := api.InitTracing(cfg.Tracing); err != nil {
			logger.WithError(err).Warn("failed to initialize tracing, continuing without it")
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 配置热更新
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath, logger)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				applyConfig(logger, ctr, newCfg)
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("failed to watch config file")
			}
			defer watcher.Stop()
		}

		// 5. 设置路由并启动服务器
		router := api.SetupRoutes(cfg, ctr)
		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", srv.Addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		case sig := <-quit:
			logger.WithField("signal", sig.String()).Info("shutting down server")
		}

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("server forced to shutdown")
		}
		if err := api.ShutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}

		logger.Info("server exited")
		return nil
	},
}

// applyConfig 应用可热更新的配置项
func applyConfig(logger *logrus.Logger, ctr *container.Container, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil && level != logger.GetLevel() {
		logger.SetLevel(level)
		logger.WithField("level", level.String()).Info("log level updated")
	}
	ctr.ApplyConfig(cfg)
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
