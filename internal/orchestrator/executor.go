package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCompletionDelay 模拟执行的固定延迟
const DefaultCompletionDelay = 3 * time.Second

// Executor 执行已受理的任务
// 实现方必须对每个任务恰好调用一次 complete,err 非空表示执行失败
type Executor interface {
	Execute(task Task, complete func(err error))
}

// ExecutorFunc 函数适配器
type ExecutorFunc func(task Task, complete func(err error))

// Execute 实现 Executor
func (f ExecutorFunc) Execute(task Task, complete func(err error)) {
	f(task, complete)
}

// TimerExecutor 在固定延迟后完成任务,代替真实的外部调用
type TimerExecutor struct {
	delay atomic.Int64
}

// NewTimerExecutor 创建定时执行器,delay <= 0 时使用默认延迟
func NewTimerExecutor(delay time.Duration) *TimerExecutor {
	e := &TimerExecutor{}
	e.SetDelay(delay)
	return e
}

// SetDelay 调整之后受理任务的延迟,配置热更新时使用
func (e *TimerExecutor) SetDelay(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultCompletionDelay
	}
	e.delay.Store(int64(delay))
}

// Delay 当前延迟
func (e *TimerExecutor) Delay() time.Duration {
	return time.Duration(e.delay.Load())
}

// Execute 实现 Executor
func (e *TimerExecutor) Execute(_ Task, complete func(err error)) {
	time.AfterFunc(e.Delay(), func() {
		complete(nil)
	})
}

// ImmediateExecutor 同步完成任务
type ImmediateExecutor struct{}

// Execute 实现 Executor
func (ImmediateExecutor) Execute(_ Task, complete func(err error)) {
	complete(nil)
}

// ManualExecutor 保存待完成的任务,由调用方决定何时以及如何完成
type ManualExecutor struct {
	mu      sync.Mutex
	pending []manualCompletion
}

type manualCompletion struct {
	task     Task
	complete func(err error)
}

// NewManualExecutor 创建手动执行器
func NewManualExecutor() *ManualExecutor {
	return &ManualExecutor{}
}

// Execute 实现 Executor
func (e *ManualExecutor) Execute(task Task, complete func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, manualCompletion{task: task, complete: complete})
}

// Pending 待完成任务数
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// CompleteNext 以 err 完成最早受理的任务,没有待完成任务时返回 false
func (e *ManualExecutor) CompleteNext(err error) bool {
	e.mu.Lock()
	if len(e.pending) == 0 {
		e.mu.Unlock()
		return false
	}
	next := e.pending[0]
	e.pending = e.pending[1:]
	e.mu.Unlock()

	next.complete(err)
	return true
}
