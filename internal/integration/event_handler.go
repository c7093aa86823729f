package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/model"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventSink 进程内的事件接收方,例如 WebSocket hub
type EventSink interface {
	Deliver(evt orchestrator.TaskEvent)
}

// EventSinkFunc 函数适配器
type EventSinkFunc func(evt orchestrator.TaskEvent)

// Deliver 实现 EventSink
func (f EventSinkFunc) Deliver(evt orchestrator.TaskEvent) { f(evt) }

// EventHandlerOptions 事件处理器参数
type EventHandlerOptions struct {
	Workers    int
	QueueSize  int
	Webhooks   []config.WebhookConfig
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

type queuedEvent struct {
	modelID string
	evt     orchestrator.TaskEvent
}

// EventHandler 基于数据库的事件处理器
// 事件先持久化,再由 worker 异步推送到进程内接收方和 Webhook
type EventHandler struct {
	eventRepo  repository.EventRepository
	httpClient *http.Client
	webhooks   []config.WebhookConfig
	maxRetries int
	backoff    time.Duration
	log        logrus.FieldLogger

	sinksMu sync.RWMutex
	sinks   []EventSink

	queue    chan queuedEvent
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEventHandler 创建事件处理器并启动 worker
func NewEventHandler(db *gorm.DB, opts EventHandlerOptions) *EventHandler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	h := &EventHandler{
		eventRepo:  repository.NewEventRepository(db),
		httpClient: opts.HTTPClient,
		webhooks:   opts.Webhooks,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		log:        opts.Logger,
		queue:      make(chan queuedEvent, opts.QueueSize),
		stop:       make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		h.wg.Add(1)
		go h.worker()
	}

	return h
}

// AddSink 注册进程内接收方
func (h *EventHandler) AddSink(sink EventSink) {
	h.sinksMu.Lock()
	defer h.sinksMu.Unlock()
	h.sinks = append(h.sinks, sink)
}

// Listener 返回可注册到编排器的回调
func (h *EventHandler) Listener() orchestrator.Listener {
	return func(evt orchestrator.TaskEvent) {
		if err := h.Handle(evt); err != nil {
			h.log.WithError(err).WithField("task_id", evt.Task.ID).Error("failed to handle task event")
		}
	}
}

// Handle 持久化事件并入队,队列满时丢弃推送但保留持久化记录
func (h *EventHandler) Handle(evt orchestrator.TaskEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now()
	eventModel := &model.EventModel{
		ID:        uuid.New().String(),
		TaskID:    evt.Task.ID,
		Type:      string(evt.Type),
		Data:      data,
		Status:    model.EventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := eventModel.Validate(); err != nil {
		return err
	}
	if err := h.eventRepo.Append(eventModel); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	select {
	case h.queue <- queuedEvent{modelID: eventModel.ID, evt: evt}:
	case <-h.stop:
	default:
		h.log.WithFields(logrus.Fields{
			"type":    evt.Type,
			"task_id": evt.Task.ID,
		}).Warn("event queue full, dropping event delivery")
	}

	return nil
}

// RedeliverPending 重新投递上次退出时仍为 pending 的事件,返回入队数量
func (h *EventHandler) RedeliverPending() (int, error) {
	pending, err := h.eventRepo.FindPending(cap(h.queue))
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}

	n := 0
	for _, m := range pending {
		var evt orchestrator.TaskEvent
		if err := json.Unmarshal(m.Data, &evt); err != nil {
			h.log.WithError(err).WithField("event_id", m.ID).Warn("skipping undecodable pending event")
			continue
		}
		select {
		case h.queue <- queuedEvent{modelID: m.ID, evt: evt}:
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

// worker 事件处理 worker
func (h *EventHandler) worker() {
	defer h.wg.Done()
	for {
		select {
		case item := <-h.queue:
			h.deliver(item)
		case <-h.stop:
			return
		}
	}
}

func (h *EventHandler) deliver(item queuedEvent) {
	h.sinksMu.RLock()
	sinks := make([]EventSink, len(h.sinks))
	copy(sinks, h.sinks)
	h.sinksMu.RUnlock()

	for _, sink := range sinks {
		sink.Deliver(item.evt)
		metrics.RecordEventDelivery("sink", "success")
	}

	status, retries := h.pushToWebhooks(item.evt)
	if err := h.eventRepo.UpdateStatus(item.modelID, status, retries); err != nil {
		h.log.WithError(err).WithField("event_id", item.modelID).Error("failed to update event status")
	}
}

// pushToWebhooks 推送到所有 Webhook,失败时指数退避重试
func (h *EventHandler) pushToWebhooks(evt orchestrator.TaskEvent) (string, int) {
	if len(h.webhooks) == 0 {
		return model.EventStatusSuccess, 0
	}

	backoff := h.backoff
	retries := 0
	pending := h.webhooks
	for i := 0; i < h.maxRetries; i++ {
		var failed []config.WebhookConfig
		for _, webhook := range pending {
			if err := h.sendWebhookRequest(webhook, evt); err != nil {
				failed = append(failed, webhook)
				h.log.WithError(err).WithField("url", webhook.URL).Warn("webhook delivery failed")
				metrics.RecordEventDelivery("webhook", model.EventStatusFailed)
				continue
			}
			metrics.RecordEventDelivery("webhook", model.EventStatusSuccess)
		}
		if len(failed) == 0 {
			return model.EventStatusSuccess, retries
		}
		pending = failed
		retries++

		if i < h.maxRetries-1 {
			select {
			case <-time.After(backoff):
			case <-h.stop:
				return model.EventStatusFailed, retries
			}
			backoff *= 2
		}
	}

	return model.EventStatusFailed, retries
}

// sendWebhookRequest 发送 Webhook 请求
func (h *EventHandler) sendWebhookRequest(webhook config.WebhookConfig, evt orchestrator.TaskEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	method := webhook.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, webhook.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(evt.Type))
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}
	return nil
}

// Stop 停止 worker,队列中未投递的事件保持 pending
func (h *EventHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	h.wg.Wait()
}
