package repository

import (
	"time"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"gorm.io/gorm"
)

// DefaultAuditLimit 未指定条数时返回的审计记录数
const DefaultAuditLimit = 50

// AuditLogFilter 审计日志查询条件,零值字段不参与过滤
type AuditLogFilter struct {
	Actor      string
	Action     string
	ResourceID string
	Since      time.Time
	Limit      int
}

// AuditLogRepository 审计日志仓储接口
type AuditLogRepository interface {
	Append(log *model.AuditLogModel) error
	Find(filter AuditLogFilter) ([]*model.AuditLogModel, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Append 插入审计记录
func (r *auditLogRepository) Append(log *model.AuditLogModel) error {
	return r.db.Create(log).Error
}

// Find 新到旧返回匹配的审计记录
func (r *auditLogRepository) Find(filter AuditLogFilter) ([]*model.AuditLogModel, error) {
	query := r.db.Model(&model.AuditLogModel{})
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	var logs []*model.AuditLogModel
	err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
