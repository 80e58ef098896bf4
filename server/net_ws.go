package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arenashooter/config"
)

// ClientConn WebSocket 连接：有界发送队列 + 独立写协程
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	cfg   config.GatewayConfig

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn, codec Codec, cfg config.GatewayConfig) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		cfg:   cfg,
		send:  make(chan []byte, cfg.SendBuffer),
		done:  make(chan struct{}),
	}
}

func (c *ClientConn) Codec() Codec { return c.codec }

// Send 非阻塞入队；队列满返回 ErrSendQueueFull
func (c *ClientConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// Close 关闭底层连接，读写协程随之退出
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ping := time.NewTicker(c.cfg.PongWait * 9 / 10)
	defer func() {
		ping.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(c.codec.FrameType(), msg); err != nil {
				Log.Debugf("write: %v", err)
				return
			}
		case <-ping.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump 读取客户端消息并交给网关；退出即断线
func (c *ClientConn) readPump(gw *Gateway, id PlayerID) {
	defer func() {
		gw.Disconnect(id)
		_ = c.Close()
	}()
	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	windowStart := time.Now()
	count := 0
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Infof("read: conn=%s: %v", id, err)
			}
			return
		}

		// 每秒入站限流，超出的消息忽略
		if now := time.Now(); now.Sub(windowStart) >= time.Second {
			windowStart, count = now, 0
		}
		count++
		if count > c.cfg.MaxMessagesPerSec {
			gw.metrics.IncRateLimited()
			continue
		}

		in, err := c.codec.Decode(payload)
		if err != nil {
			Log.Debugf("decode: conn=%s: %v", id, err)
			continue
		}
		gw.Dispatch(id, in)
	}
}

// WSHandler WebSocket 接入：/ws?codec=json|msgpack
type WSHandler struct {
	gw       *Gateway
	cfg      config.GatewayConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(gw *Gateway, cfg config.GatewayConfig) *WSHandler {
	return &WSHandler{
		gw:  gw,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 客户端与静态页面同源部署，这里放开来源检查
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, CodecByName(r.URL.Query().Get("codec")), h.cfg)
	id := h.gw.Connect(client)
	Log.Debugf("connected: conn=%s codec=%s remote=%s", id, client.codec.Name(), r.RemoteAddr)

	go client.writePump()
	go client.readPump(h.gw, id)
}
