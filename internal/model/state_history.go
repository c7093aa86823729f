package model

import (
	"errors"
	"fmt"
	"time"
)

// StateHistoryModel 任务状态变更记录,只追加
// 任务创建时 FromState 为空
type StateHistoryModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID    string    `gorm:"type:varchar(64);not null;index"`
	FromState string    `gorm:"type:varchar(32)"`
	ToState   string    `gorm:"type:varchar(32);not null"`
	Reason    string    `gorm:"type:text"` // 失败原因或结果摘要
	Operator  string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (StateHistoryModel) TableName() string {
	return "state_history"
}

// IsCreation 是否为任务创建时的记录
func (h *StateHistoryModel) IsCreation() bool {
	return h.FromState == ""
}

// Transition 形如 "processing -> completed"
func (h *StateHistoryModel) Transition() string {
	if h.IsCreation() {
		return "-> " + h.ToState
	}
	return fmt.Sprintf("%s -> %s", h.FromState, h.ToState)
}

// Validate 校验必填项,状态必须发生变化
func (h *StateHistoryModel) Validate() error {
	switch {
	case h.ID == "":
		return errors.New("history ID is required")
	case h.TaskID == "":
		return errors.New("task ID is required")
	case h.ToState == "":
		return errors.New("to state is required")
	case h.Operator == "":
		return errors.New("operator is required")
	case h.FromState == h.ToState:
		return fmt.Errorf("state did not change: %s", h.ToState)
	}
	return nil
}
