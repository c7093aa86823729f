package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/google/uuid"
)

// 审计动作
const (
	AuditActionSubmit = "submit"
	AuditActionReject = "reject"
)

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, action string, resourceType string, resourceID string, details interface{}) error
	Recent(limit int) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
	}
}

// RecordAction 记录操作审计日志,提交方和请求信息取自 context
func (s *auditLogService) RecordAction(
	ctx context.Context,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	info := RequestInfoFromContext(ctx)
	auditLog := &model.AuditLogModel{
		ID:           uuid.New().String(),
		Actor:        info.Actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    info.RequestID,
		IP:           info.IP,
		UserAgent:    info.UserAgent,
		Details:      detailsJSON,
		CreatedAt:    time.Now(),
	}
	if err := auditLog.Validate(); err != nil {
		return err
	}

	return s.auditRepo.Append(auditLog)
}

// Recent 最近的审计日志
func (s *auditLogService) Recent(limit int) ([]*model.AuditLogModel, error) {
	return s.auditRepo.Find(repository.AuditLogFilter{Limit: limit})
}
