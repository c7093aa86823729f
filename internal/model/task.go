package model

import (
	"errors"
	"time"
)

// TaskModel 命令任务数据模型
type TaskModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Command   string    `gorm:"type:text;not null"`
	Category  string    `gorm:"type:varchar(32);not null;index"`
	State     string    `gorm:"type:varchar(32);not null;index"` // 任务状态
	Result    string    `gorm:"type:text"`                       // 完成结果,仅 completed 有值
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.Command == "" {
		return errors.New("task command is required")
	}
	if tm.Category == "" {
		return errors.New("task category is required")
	}
	if tm.State == "" {
		return errors.New("task state is required")
	}
	return nil
}
