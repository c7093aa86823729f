package orchestrator

import "time"

// EventType 任务事件类型
type EventType string

const (
	EventTaskCreated   EventType = "task.created"
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"
)

// TaskEvent 任务创建或进入终态时发出的通知
type TaskEvent struct {
	Type  EventType `json:"type"`
	Task  Task      `json:"task"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// Listener 同步事件回调,在锁外调用
// 所有监听者看到的事件顺序与状态变更顺序一致,回调返回前后续事件不会发出
type Listener func(evt TaskEvent)
