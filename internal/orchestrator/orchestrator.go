package orchestrator

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxCommandLength 默认不限制命令长度
const DefaultMaxCommandLength = 0

// CommandLengthHint 输入框旁显示的参考长度,只用于展示
const CommandLengthHint = 500

// Store 任务持久化,每次创建或状态变更后以完整快照调用
type Store interface {
	Save(ctx context.Context, task Task) error
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithSeed 以已有历史初始化,tasks 按新到旧排列
func WithSeed(tasks []Task) Option {
	return func(o *Orchestrator) {
		o.seed = append(o.seed, tasks...)
	}
}

// WithStore 设置持久化
func WithStore(store Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithResultPicker 设置结果挑选器
func WithResultPicker(picker ResultPicker) Option {
	return func(o *Orchestrator) {
		o.picker = picker
	}
}

// WithLogger 设置日志
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = logger
	}
}

// WithMaxCommandLength 设置命令长度上限,0 表示不限制
func WithMaxCommandLength(n int) Option {
	return func(o *Orchestrator) {
		o.maxCommandLength = n
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDGenerator 替换任务 ID 生成方式
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		o.newID = gen
	}
}

// Orchestrator 命令任务编排器
//
// 它独占任务历史和提交锁:同一时刻最多只有一个已受理、尚未完成的命令。
// 对外只暴露历史的副本。
type Orchestrator struct {
	mu       sync.RWMutex
	tasks    []*Task // 新到旧
	index    map[string]*Task
	busy     bool
	inflight string

	listenerMu     sync.RWMutex
	listeners      []registeredListener
	nextListenerID int

	// 通知按状态变更的顺序发出: 持有 mu 时领号,按号依次持久化和通知
	nextTicket  uint64
	publishMu   sync.Mutex
	publishCond *sync.Cond
	serving     uint64

	executor         Executor
	picker           ResultPicker
	store            Store
	log              logrus.FieldLogger
	maxCommandLength int
	now              func() time.Time
	newID            func() string

	seed []Task
}

// New 创建编排器
func New(executor Executor, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		index:            make(map[string]*Task),
		executor:         executor,
		maxCommandLength: DefaultMaxCommandLength,
		now:              time.Now,
		newID:            func() string { return uuid.New().String() },
	}
	o.publishCond = sync.NewCond(&o.publishMu)
	for _, opt := range opts {
		opt(o)
	}

	if o.executor == nil {
		o.executor = NewTimerExecutor(DefaultCompletionDelay)
	}
	if o.picker == nil {
		o.picker = NewRandomPicker(nil, ResultCatalog)
	}
	if o.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.log = discard
	}

	for i := range o.seed {
		t := o.seed[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := o.index[t.ID]; exists {
			continue
		}
		o.tasks = append(o.tasks, &t)
		o.index[t.ID] = &t
	}
	o.seed = nil

	return o, nil
}

type registeredListener struct {
	id int
	fn Listener
}

// AddListener 注册事件回调,回调中不能再调用 Submit
func (o *Orchestrator) AddListener(l Listener) {
	o.addListener(l)
}

func (o *Orchestrator) addListener(l Listener) int {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	o.nextListenerID++
	o.listeners = append(o.listeners, registeredListener{id: o.nextListenerID, fn: l})
	return o.nextListenerID
}

func (o *Orchestrator) removeListener(id int) {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	for i, l := range o.listeners {
		if l.id == id {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			return
		}
	}
}

// Subscribe 以 channel 形式订阅事件
// 订阅者消费过慢时事件会被丢弃,cancel 之后 channel 被关闭
func (o *Orchestrator) Subscribe(buffer int) (<-chan TaskEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan TaskEvent, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	id := o.addListener(func(evt TaskEvent) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- evt:
		default:
			o.log.WithField("task_id", evt.Task.ID).Warn("subscriber too slow, dropping task event")
		}
	})
	cancel := func() {
		o.removeListener(id)
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
	return ch, cancel
}

// Submit 受理一条命令
//
// 命令为空返回 ErrEmptyCommand,已有命令在执行中返回 ErrBusy,这两种情况都不改变任何状态。
// 受理成功后任务以 processing 状态插入历史首位,完成回调由执行器异步触发。
func (o *Orchestrator) Submit(ctx context.Context, command string) (string, error) {
	text := strings.TrimSpace(command)
	if text == "" {
		return "", ErrEmptyCommand
	}
	if o.maxCommandLength > 0 && utf8.RuneCountInString(text) > o.maxCommandLength {
		return "", ErrCommandTooLong
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return "", ErrBusy
	}
	task := &Task{
		ID:        o.newID(),
		Command:   text,
		Category:  Classify(text),
		Status:    StatusProcessing,
		CreatedAt: o.now(),
	}
	o.tasks = append([]*Task{task}, o.tasks...)
	o.index[task.ID] = task
	o.busy = true
	o.inflight = task.ID
	snapshot := *task
	ticket := o.takeTicket()
	o.mu.Unlock()

	o.log.WithFields(logrus.Fields{
		"task_id":  snapshot.ID,
		"category": snapshot.Category,
	}).Info("command accepted")

	o.publish(ticket, func() {
		o.persist(ctx, snapshot)
		o.emit(TaskEvent{Type: EventTaskCreated, Task: snapshot, Time: snapshot.CreatedAt})
	})

	o.executor.Execute(snapshot, func(err error) {
		o.complete(snapshot.ID, err)
	})

	return snapshot.ID, nil
}

// complete 执行器回调,每个任务只会生效一次
func (o *Orchestrator) complete(id string, execErr error) {
	o.mu.Lock()
	task, ok := o.index[id]
	if !ok || task.Status != StatusProcessing {
		o.mu.Unlock()
		o.log.WithField("task_id", id).Warn("ignoring completion for task that is not processing")
		return
	}

	evt := TaskEvent{Time: o.now()}
	if execErr != nil {
		task.Status = StatusError
		task.Result = ""
		evt.Type = EventTaskFailed
		evt.Error = (&ExecutionError{TaskID: id, Err: execErr}).Error()
	} else {
		result := o.picker.Pick(*task)
		if result == "" {
			result = ResultCatalog[0]
		}
		task.Status = StatusCompleted
		task.Result = result
		evt.Type = EventTaskCompleted
	}
	if o.inflight == id {
		o.busy = false
		o.inflight = ""
	}
	evt.Task = *task
	ticket := o.takeTicket()
	o.mu.Unlock()

	entry := o.log.WithFields(logrus.Fields{
		"task_id": id,
		"status":  evt.Task.Status,
	})
	if execErr != nil {
		entry.WithError(execErr).Warn("command execution failed")
	} else {
		entry.Info("command completed")
	}

	o.publish(ticket, func() {
		o.persist(context.Background(), evt.Task)
		o.emit(evt)
	})
}

// History 返回历史快照,新到旧
func (o *Orchestrator) History() []Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Task, len(o.tasks))
	for i, t := range o.tasks {
		out[i] = *t
	}
	return out
}

// Get 按 ID 获取任务快照
func (o *Orchestrator) Get(id string) (Task, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.index[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *t, nil
}

// Busy 提交锁是否被占用
func (o *Orchestrator) Busy() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.busy
}

// InFlight 当前占用提交锁的任务 ID
func (o *Orchestrator) InFlight() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.inflight, o.busy
}

// CountByStatus 各状态的任务数,所有状态都有键
func (o *Orchestrator) CountByStatus() map[Status]int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	counts := make(map[Status]int, len(Statuses()))
	for _, s := range Statuses() {
		counts[s] = 0
	}
	for _, t := range o.tasks {
		counts[t.Status]++
	}
	return counts
}

// Len 历史长度
func (o *Orchestrator) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.tasks)
}

// takeTicket 调用方必须持有 mu
func (o *Orchestrator) takeTicket() uint64 {
	t := o.nextTicket
	o.nextTicket++
	return t
}

// publish 等前面的号都发布完再执行 fn
// 等待时不持有 mu,回调里可以读取编排器状态
func (o *Orchestrator) publish(ticket uint64, fn func()) {
	o.publishMu.Lock()
	for o.serving != ticket {
		o.publishCond.Wait()
	}
	o.publishMu.Unlock()

	defer func() {
		o.publishMu.Lock()
		o.serving++
		o.publishCond.Broadcast()
		o.publishMu.Unlock()
	}()
	fn()
}

// persist 持久化失败只记录日志,内存中的历史始终是准的
func (o *Orchestrator) persist(ctx context.Context, task Task) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, task); err != nil {
		o.log.WithError(err).WithField("task_id", task.ID).Error("failed to persist task")
	}
}

func (o *Orchestrator) emit(evt TaskEvent) {
	o.listenerMu.RLock()
	listeners := make([]registeredListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.listenerMu.RUnlock()

	for _, l := range listeners {
		l.fn(evt)
	}
}
