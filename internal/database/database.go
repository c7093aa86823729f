package database

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SlowQueryThreshold 超过该耗时的 SQL 记为慢查询
const SlowQueryThreshold = 200 * time.Millisecond

// Option 连接选项
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger SQL 日志写入 logrus,级别由 database.log_level 决定
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = logger
	}
}

// ParseLogLevel 解析 SQL 日志级别,空值等同 silent
func ParseLogLevel(level string) (gormlogger.LogLevel, error) {
	switch level {
	case "", "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	}
	return gormlogger.Silent, fmt.Errorf("unsupported database log level: %q", level)
}

// logrusWriter 把 gorm 的日志行转给 logrus
type logrusWriter struct {
	log logrus.FieldLogger
}

func (w logrusWriter) Printf(format string, args ...interface{}) {
	w.log.WithField("component", "gorm").Warnf(format, args...)
}

// newGormLogger 默认不输出任何 SQL 日志,gorm 自带的 logger 直接写 stdout
func newGormLogger(cfg config.DatabaseConfig, o options) (gormlogger.Interface, error) {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if level == gormlogger.Silent || o.log == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent), nil
	}
	return gormlogger.New(logrusWriter{log: o.log}, gormlogger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	}), nil
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟
	}
}

// ResolvePoolConfig 以配置值为准,未设置的项用 defaults 补齐
func ResolvePoolConfig(cfg config.DatabaseConfig, defaults *PoolConfig) *PoolConfig {
	pool := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = defaults.MaxIdleConns
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = defaults.MaxOpenConns
	}
	if pool.ConnMaxLifetime == 0 {
		pool.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if pool.ConnMaxIdleTime == 0 {
		pool.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	return pool
}

// Open 按驱动打开数据库,不设置连接池
func Open(cfg config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	sqlLogger, err := newGormLogger(cfg, o)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(BuildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: sqlLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	return connect(cfg, GetPoolConfig(), opts...)
}

// ConnectProduction 连接数据库（生产环境配置）
func ConnectProduction(cfg config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	return connect(cfg, GetProductionPoolConfig(), opts...)
}

func connect(cfg config.DatabaseConfig, defaults *PoolConfig, opts ...Option) (*gorm.DB, error) {
	db, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := ResolvePoolConfig(cfg, defaults)
	if IsSQLite(db) {
		// SQLite 单写者,内存库每个连接都是独立的库
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// IsSQLite 判断是否为 SQLite
// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
func IsSQLite(db *gorm.DB) bool {
	name := db.Dialector.Name()
	return name == "sqlite" || name == "sqlite3"
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// SQLite 不支持 jsonb，需要手动创建表
	if IsSQLite(db) {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.TaskModel{},
			&model.StateHistoryModel{},
			&model.EventModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"tasks", `
			CREATE TABLE IF NOT EXISTS tasks (
				id VARCHAR(64) PRIMARY KEY,
				command TEXT NOT NULL,
				category VARCHAR(32) NOT NULL,
				state VARCHAR(32) NOT NULL,
				result TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`},
		{"state_history", `
			CREATE TABLE IF NOT EXISTS state_history (
				id VARCHAR(64) PRIMARY KEY,
				task_id VARCHAR(64) NOT NULL,
				from_state VARCHAR(32),
				to_state VARCHAR(32) NOT NULL,
				reason TEXT,
				operator VARCHAR(64) NOT NULL,
				created_at DATETIME NOT NULL
			)`},
		{"events", `
			CREATE TABLE IF NOT EXISTS events (
				id VARCHAR(64) PRIMARY KEY,
				task_id VARCHAR(64) NOT NULL,
				type VARCHAR(32) NOT NULL,
				data TEXT NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				retry_count INTEGER DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`},
		{"audit_logs", `
			CREATE TABLE IF NOT EXISTS audit_logs (
				id VARCHAR(64) PRIMARY KEY,
				actor VARCHAR(64) NOT NULL,
				action VARCHAR(64) NOT NULL,
				resource_type VARCHAR(32) NOT NULL,
				resource_id VARCHAR(64),
				request_id VARCHAR(64),
				ip VARCHAR(45),
				user_agent TEXT,
				details TEXT,
				created_at DATETIME NOT NULL
			)`},
	}

	for _, table := range tables {
		if err := db.Exec(table.ddl).Error; err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}

// indexes 通用索引
var indexes = []struct {
	name string
	ddl  string
}{
	// tasks 表索引
	{"idx_tasks_state_category", "CREATE INDEX IF NOT EXISTS idx_tasks_state_category ON tasks(state, category)"},
	{"idx_tasks_created_at", "CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)"},
	{"idx_tasks_updated_at", "CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON tasks(updated_at)"},
	// state_history 表索引
	{"idx_history_task_id", "CREATE INDEX IF NOT EXISTS idx_history_task_id ON state_history(task_id)"},
	{"idx_history_created_at", "CREATE INDEX IF NOT EXISTS idx_history_created_at ON state_history(created_at)"},
	// events 表索引
	{"idx_events_status", "CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)"},
	{"idx_events_task_id", "CREATE INDEX IF NOT EXISTS idx_events_task_id ON events(task_id)"},
	{"idx_events_created_at", "CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)"},
	// audit_logs 表索引
	{"idx_audit_resource", "CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)"},
	{"idx_audit_actor", "CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_logs(actor)"},
	{"idx_audit_created_at", "CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)"},
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec(idx.ddl).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}

	// PostgreSQL 特定的 GIN 索引
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_data_gin ON events USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_events_data_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration, opts ...Option) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg, opts...)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
