package repository

import (
	"time"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"gorm.io/gorm"
)

// EventRepository 任务事件仓储
type EventRepository interface {
	Append(event *model.EventModel) error
	FindByTaskID(taskID string) ([]*model.EventModel, error)
	FindPending(limit int) ([]*model.EventModel, error)
	UpdateStatus(id string, status string, retryCount int) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Append 插入事件
func (r *eventRepository) Append(event *model.EventModel) error {
	return r.db.Create(event).Error
}

// FindByTaskID 某任务的事件,按产生顺序
func (r *eventRepository) FindByTaskID(taskID string) ([]*model.EventModel, error) {
	var events []*model.EventModel
	err := r.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// FindPending 最早的 limit 条未投递事件,limit <= 0 表示全部
func (r *eventRepository) FindPending(limit int) ([]*model.EventModel, error) {
	query := r.db.Where("status = ?", model.EventStatusPending).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []*model.EventModel
	err := query.Find(&events).Error
	return events, err
}

// UpdateStatus 记录投递结果
func (r *eventRepository) UpdateStatus(id string, status string, retryCount int) error {
	return r.db.Model(&model.EventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": retryCount,
			"updated_at":  time.Now(),
		}).Error
}
