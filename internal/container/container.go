package container

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/database"
	"github.com/AlexandrinoANP/ANP/internal/integration"
	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/AlexandrinoANP/ANP/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Option 容器选项
type Option func(*options)

type options struct {
	executor        orchestrator.Executor
	picker          orchestrator.ResultPicker
	collectInterval time.Duration
}

// WithExecutor 替换默认的定时执行器
func WithExecutor(executor orchestrator.Executor) Option {
	return func(o *options) { o.executor = executor }
}

// WithResultPicker 替换随机结果
func WithResultPicker(picker orchestrator.ResultPicker) Option {
	return func(o *options) { o.picker = picker }
}

// WithCollectInterval 指标采集间隔
func WithCollectInterval(d time.Duration) Option {
	return func(o *options) { o.collectInterval = d }
}

// Container 依赖注入容器
// 管理数据库、编排器、事件投递和各业务服务的生命周期
type Container struct {
	cfg *config.Config
	log logrus.FieldLogger

	db           *gorm.DB
	store        *integration.TaskStore
	timer        *orchestrator.TimerExecutor
	orch         *orchestrator.Orchestrator
	eventHandler *integration.EventHandler
	hub          *websocket.Hub
	hubCancel    context.CancelFunc
	collector    *metrics.Collector

	taskService       service.TaskService
	queryService      service.QueryService
	statisticsService service.StatisticsService
	auditLogService   service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 连接并迁移数据库,恢复任务历史,注册事件监听并启动后台 worker
func NewContainer(cfg *config.Config, logger logrus.FieldLogger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	o := &options{collectInterval: 15 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	// 1. 数据库,重试 3 次,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second,
		database.WithLogger(logger.WithField("component", "database")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c := &Container{cfg: cfg, log: logger, db: db}

	// 2. 恢复任务历史,空库时写入示例任务
	c.store = integration.NewTaskStore(db, logger.WithField("component", "task_store"))
	var seed []orchestrator.Task
	if cfg.Orchestrator.Seed {
		seed = orchestrator.DefaultSeed(time.Now())
	}
	history, err := c.store.LoadOrSeed(context.Background(), seed)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to restore task history: %w", err)
	}
	cutoff := time.Now().Add(-cfg.Orchestrator.InterruptGrace)
	history, recovered, err := c.store.RecoverInterrupted(context.Background(), history, cutoff)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}
	if recovered > 0 {
		logger.WithField("count", recovered).Warn("marked interrupted tasks as error")
	}

	// 3. 编排器
	executor := o.executor
	if executor == nil {
		c.timer = orchestrator.NewTimerExecutor(cfg.Orchestrator.CompletionDelay)
		executor = c.timer
	}
	orchOpts := []orchestrator.Option{
		orchestrator.WithSeed(history),
		orchestrator.WithStore(c.store),
		orchestrator.WithMaxCommandLength(cfg.Orchestrator.MaxCommandLength),
		orchestrator.WithLogger(logger.WithField("component", "orchestrator")),
	}
	if o.picker != nil {
		orchOpts = append(orchOpts, orchestrator.WithResultPicker(o.picker))
	}
	c.orch, err = orchestrator.New(executor, orchOpts...)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// 4. 事件投递: 持久化 -> worker -> WebSocket hub / Webhook
	c.hub = websocket.NewHub(logger.WithField("component", "websocket"))
	hubCtx, hubCancel := context.WithCancel(context.Background())
	c.hubCancel = hubCancel
	go c.hub.Run(hubCtx)

	c.eventHandler = integration.NewEventHandler(db, integration.EventHandlerOptions{
		Workers:   cfg.Orchestrator.EventWorkers,
		QueueSize: cfg.Orchestrator.EventQueueSize,
		Webhooks:  cfg.Webhooks,
		Logger:    logger.WithField("component", "event_handler"),
	})
	c.eventHandler.AddSink(c.hub)
	c.orch.AddListener(c.eventHandler.Listener())
	if n, err := c.eventHandler.RedeliverPending(); err != nil {
		logger.WithError(err).Warn("failed to redeliver pending events")
	} else if n > 0 {
		logger.WithField("count", n).Info("redelivering pending events")
	}

	// 5. 业务服务
	c.auditLogService = service.NewAuditLogService(repository.NewAuditLogRepository(db))
	c.taskService = service.NewTaskService(c.orch, c.auditLogService, logger.WithField("component", "task_service"))
	c.queryService = service.NewQueryService(c.orch,
		repository.NewStateHistoryRepository(db),
		repository.NewEventRepository(db),
	)
	c.statisticsService = service.NewStatisticsService(db)

	// 6. 指标采集
	c.collector = metrics.NewCollector(db, c.countByStatus, o.collectInterval)
	c.collector.Start()

	return c, nil
}

func (c *Container) countByStatus() map[string]int {
	counts := c.orch.CountByStatus()
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	return out
}

// Config 当前配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Logger 日志记录器
func (c *Container) Logger() logrus.FieldLogger {
	return c.log
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Orchestrator 获取编排器
func (c *Container) Orchestrator() *orchestrator.Orchestrator {
	return c.orch
}

// TimerExecutor 默认执行器,使用自定义执行器时为 nil
func (c *Container) TimerExecutor() *orchestrator.TimerExecutor {
	return c.timer
}

// EventHandler 获取事件处理器
func (c *Container) EventHandler() *integration.EventHandler {
	return c.eventHandler
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// ApplyConfig 应用热更新的配置,只有完成延迟会生效
func (c *Container) ApplyConfig(cfg *config.Config) {
	if c.timer != nil && cfg.Orchestrator.CompletionDelay != c.timer.Delay() {
		c.timer.SetDelay(cfg.Orchestrator.CompletionDelay)
		c.log.WithField("delay", c.timer.Delay().String()).Info("completion delay updated")
	}
}

// Close 停止后台 worker 并关闭数据库
// 执行中的任务不会等待完成,重启后以 processing 状态恢复
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.eventHandler != nil {
		c.eventHandler.Stop()
	}
	if c.hubCancel != nil {
		c.hubCancel()
	}
	return database.Close(c.db)
}
