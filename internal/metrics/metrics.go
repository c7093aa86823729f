package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 受理的命令数
	commandsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_submitted_total",
			Help: "Total number of accepted commands",
		},
		[]string{"category"},
	)

	// 被拒绝的命令数
	commandsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_rejected_total",
			Help: "Total number of rejected command submissions",
		},
		[]string{"reason"}, // empty, busy, too_long
	)

	// 任务完成数
	taskCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_completions_total",
			Help: "Total number of tasks reaching a terminal state",
		},
		[]string{"status"},
	)

	// 从受理到完成的耗时
	taskExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_execution_duration_seconds",
			Help:    "Time from acceptance to completion in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 3, 5, 10, 30},
		},
		[]string{"category"},
	)

	// 提交锁占用
	orchestratorBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_busy",
			Help: "1 while a command is executing, 0 otherwise",
		},
	)

	// 事件投递
	eventDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_deliveries_total",
			Help: "Total number of task event deliveries",
		},
		[]string{"target", "status"}, // target: sink/webhook
	)

	// 实时连接数
	realtimeClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Number of connected realtime clients",
		},
		[]string{"transport"}, // sse/websocket
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 任务状态分布
	tasksByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_state",
			Help: "Number of tasks by state",
		},
		[]string{"state"},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(commandsSubmittedTotal)
	prometheus.MustRegister(commandsRejectedTotal)
	prometheus.MustRegister(taskCompletionsTotal)
	prometheus.MustRegister(taskExecutionDuration)
	prometheus.MustRegister(orchestratorBusy)
	prometheus.MustRegister(eventDeliveriesTotal)
	prometheus.MustRegister(realtimeClients)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(tasksByState)

	// Go 运行时指标只注册一次,已注册时忽略错误
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordCommandSubmitted 记录受理的命令
func RecordCommandSubmitted(category string) {
	commandsSubmittedTotal.WithLabelValues(category).Inc()
}

// RecordCommandRejected 记录被拒绝的命令
func RecordCommandRejected(reason string) {
	commandsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordTaskCompletion 记录任务进入终态
func RecordTaskCompletion(category, status string, seconds float64) {
	taskCompletionsTotal.WithLabelValues(status).Inc()
	if seconds >= 0 {
		taskExecutionDuration.WithLabelValues(category).Observe(seconds)
	}
}

// SetOrchestratorBusy 更新提交锁状态
func SetOrchestratorBusy(busy bool) {
	if busy {
		orchestratorBusy.Set(1)
	} else {
		orchestratorBusy.Set(0)
	}
}

// RecordEventDelivery 记录事件投递结果
func RecordEventDelivery(target, status string) {
	eventDeliveriesTotal.WithLabelValues(target, status).Inc()
}

// AddRealtimeClients 调整实时连接数
func AddRealtimeClients(transport string, delta float64) {
	realtimeClients.WithLabelValues(transport).Add(delta)
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateTasksByState 更新任务状态分布指标
func UpdateTasksByState(state string, count float64) {
	tasksByState.WithLabelValues(state).Set(count)
}
