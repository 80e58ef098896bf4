package server

import (
	"errors"
	"sync"
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrConnClosed    = errors.New("connection closed")
)

// Conn 一条客户端连接的发送端。Send 不得阻塞。
// Close 只关闭传输，断线清理由读协程退出时触发。
type Conn interface {
	Codec() Codec
	Send(frame []byte) error
	Close() error
}

// Hub 连接注册表，实现 Publisher：按连接编码序列化并投递
type Hub struct {
	mu      sync.RWMutex
	conns   map[PlayerID]Conn
	metrics *Metrics
}

func NewHub(metrics *Metrics) *Hub {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Hub{conns: make(map[PlayerID]Conn), metrics: metrics}
}

func (h *Hub) Register(id PlayerID, c Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id PlayerID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Count 当前在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish 同一事件对每种编码只序列化一次。
// 队列已满的连接直接关闭，而不是悄悄丢帧。
func (h *Hub) Publish(ids []PlayerID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frames := make(map[string][]byte, 1)
	for _, id := range ids {
		c, ok := h.conns[id]
		if !ok {
			continue
		}
		codec := c.Codec()
		frame, ok := frames[codec.Name()]
		if !ok {
			var err error
			frame, err = codec.Encode(event, payload)
			if err != nil {
				Log.Errorf("encode %s (%s): %v", event, codec.Name(), err)
			}
			// 编码失败记为 nil，同编码的后续连接直接跳过
			frames[codec.Name()] = frame
		}
		if frame == nil {
			continue
		}
		if err := c.Send(frame); err != nil {
			if errors.Is(err, ErrSendQueueFull) {
				h.metrics.IncSlowConsumers()
				Log.Warnf("slow consumer, closing: conn=%s event=%s", id, event)
			}
			_ = c.Close()
		}
	}
}

// Send 单播，用于尚未加入房间的连接（如 errorMsg）
func (h *Hub) Send(id PlayerID, event string, payload any) {
	h.Publish([]PlayerID{id}, event, payload)
}
