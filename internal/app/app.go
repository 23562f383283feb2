package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"broker-assistant/internal/ai"
	"broker-assistant/internal/broker"
	"broker-assistant/internal/config"
	"broker-assistant/internal/dialogue"
	"broker-assistant/internal/store"
	"broker-assistant/internal/transcript"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装依赖并阻塞运行 HTTP 服务，直到上下文取消。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("对话助手已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("broker_base_url", a.cfg.Broker.BaseURL),
		zap.String("model", a.cfg.OpenAI.Model),
	)

	brokerClient, err := broker.NewClient(a.cfg.Broker, a.logger)
	if err != nil {
		return fmt.Errorf("初始化券商客户端失败: %w", err)
	}

	aiClient, err := ai.NewClient(a.cfg.OpenAI, a.logger)
	if err != nil {
		return fmt.Errorf("初始化AI客户端失败: %w", err)
	}

	transcriptSvc, err := transcript.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化会话日志失败: %w", err)
	}

	engine := dialogue.NewEngine(aiClient, brokerClient, aiClient, dialogue.Options{
		HistoryLimit:       a.cfg.Dialogue.HistoryLimit,
		StatusPollAttempts: a.cfg.Dialogue.StatusPollAttempts,
		StatusPollInterval: a.cfg.Dialogue.StatusPollInterval,
	}, a.logger)

	server := NewServer(a.cfg, a.logger, engine, brokerClient, transcriptSvc)

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: server.Router()}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.logger.Info("HTTP 服务已启动", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("关闭 HTTP 服务失败", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}

	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
