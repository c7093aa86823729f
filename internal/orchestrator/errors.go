package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCommand 命令去除首尾空白后为空
	ErrEmptyCommand = errors.New("command text is empty")
	// ErrBusy 已有命令在执行中
	ErrBusy = errors.New("another command is still being processed")
	// ErrCommandTooLong 命令超过长度上限
	ErrCommandTooLong = errors.New("command text is too long")
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("task not found")
)

// ExecutionError 执行阶段失败,任务会进入 error 状态
type ExecutionError struct {
	TaskID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of task %s failed: %v", e.TaskID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
