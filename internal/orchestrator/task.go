package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// Category 任务分类
type Category string

const (
	CategoryContent    Category = "content"
	CategoryAutomation Category = "automation"
	CategorySocial     Category = "social"
	CategoryCalendar   Category = "calendar"
	CategoryCRM        Category = "crm"
)

// Categories 返回全部分类
func Categories() []Category {
	return []Category{CategoryContent, CategoryAutomation, CategorySocial, CategoryCalendar, CategoryCRM}
}

// Valid 判断分类是否合法
func (c Category) Valid() bool {
	switch c {
	case CategoryContent, CategoryAutomation, CategorySocial, CategoryCalendar, CategoryCRM:
		return true
	}
	return false
}

// ParseCategory 解析分类字符串
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q", s)
	}
	return c, nil
}

// Status 任务状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Statuses 返回全部状态
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusError}
}

// Valid 判断状态是否合法
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// IsTerminal completed 与 error 之后不再有任何状态转换
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return st, nil
}

// Task 一条命令及其执行结果
// Result 仅在 Status 为 completed 时非空
type Task struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Category  Category  `json:"category"`
	Status    Status    `json:"status"`
	Result    string    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasResult 是否已有执行结果
func (t Task) HasResult() bool {
	return t.Result != ""
}

// Validate 校验任务记录的不变量,用于种子数据和持久化恢复
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(t.Command) == "" {
		return ErrEmptyCommand
	}
	if !t.Category.Valid() {
		return fmt.Errorf("task %s: invalid category %q", t.ID, t.Category)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task %s: invalid status %q", t.ID, t.Status)
	}
	if (t.Status == StatusCompleted) != t.HasResult() {
		return fmt.Errorf("task %s: result must be set iff status is completed", t.ID)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("task %s: created_at is required", t.ID)
	}
	return nil
}
