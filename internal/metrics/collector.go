package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StateCounter 返回当前各状态的任务数
type StateCounter func() map[string]int

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB
	counter  StateCounter
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器,counter 可以为 nil
func NewCollector(db *gorm.DB, counter StateCounter, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		counter:  counter,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// CollectOnce 立即采集一次
func (c *Collector) CollectOnce() {
	if c.db != nil {
		_ = UpdateDatabaseConnections(c.db)
	}
	if c.counter != nil {
		for state, n := range c.counter() {
			UpdateTasksByState(state, float64(n))
		}
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce()
		}
	}
}
