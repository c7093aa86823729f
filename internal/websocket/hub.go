package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/sirupsen/logrus"
)

// Message 推送给客户端的任务事件
type Message struct {
	Type   string             `json:"type"`
	TaskID string             `json:"task_id"`
	Task   *orchestrator.Task `json:"task,omitempty"`
	Error  string             `json:"error,omitempty"`
	Time   int64              `json:"time"`
}

type broadcast struct {
	taskID  string
	payload []byte
}

// Hub 管理所有 WebSocket 连接
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// 保护 clients map,Run 之外只读
	mu sync.RWMutex

	log logrus.FieldLogger
}

// NewHub 创建新的 Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcast, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Run 运行 Hub,ctx 取消后关闭所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			h.remove(client)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.AddRealtimeClients("websocket", 1)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Accepts(msg.taskID) {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					// 慢客户端直接断开
					h.log.WithField("client_id", client.ID).Warn("websocket client too slow, disconnecting")
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove 调用方持有写锁
func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	metrics.AddRealtimeClients("websocket", -1)
}

// Register 注册客户端,Hub 已停止时返回 false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver 把任务事件广播给关注该任务的客户端
func (h *Hub) Deliver(evt orchestrator.TaskEvent) {
	task := evt.Task
	payload, err := json.Marshal(Message{
		Type:   string(evt.Type),
		TaskID: task.ID,
		Task:   &task,
		Error:  evt.Error,
		Time:   evt.Time.Unix(),
	})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal websocket message")
		return
	}
	h.Broadcast(task.ID, payload)
}

// Broadcast 向关注 taskID 的客户端广播原始消息
func (h *Hub) Broadcast(taskID string, payload []byte) {
	select {
	case h.broadcast <- broadcast{taskID: taskID, payload: payload}:
	case <-h.done:
	case <-time.After(time.Second):
		h.log.WithField("task_id", taskID).Warn("websocket broadcast queue full, dropping message")
	}
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
