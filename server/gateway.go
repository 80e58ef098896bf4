package server

import (
	"errors"

	"github.com/google/uuid"
)

// Gateway 会话网关：把连接事件翻译为房间操作
type Gateway struct {
	rooms   *RoomManager
	hub     *Hub
	metrics *Metrics
}

func NewGateway(rooms *RoomManager, hub *Hub, metrics *Metrics) *Gateway {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Gateway{rooms: rooms, hub: hub, metrics: metrics}
}

// Connect 为新连接分配标识并登记
func (g *Gateway) Connect(c Conn) PlayerID {
	id := PlayerID(uuid.NewString())
	g.hub.Register(id, c)
	return id
}

// Disconnect 传输关闭后的清理，可重复调用
func (g *Gateway) Disconnect(id PlayerID) {
	g.hub.Unregister(id)
	g.rooms.Leave(id)
}

// Dispatch 处理一条入站消息；未知事件忽略
func (g *Gateway) Dispatch(id PlayerID, in Inbound) {
	switch in.Event {
	case EventJoinRoom:
		g.joinRoom(id, in)
	case EventPlayerMove:
		g.move(id, in)
	case EventRespawnRequest:
		g.requestRespawn(id)
	case EventChatMessage:
		g.chat(id, in)
	default:
		Log.Debugf("unknown event %q from %s", in.Event, id)
	}
}

func (g *Gateway) joinRoom(id PlayerID, in Inbound) {
	var req JoinRequest
	if err := in.Bind(&req); err != nil {
		g.hub.Send(id, EventErrorMsg, ErrInvalidLogin.Message)
		return
	}
	_, err := g.rooms.Join(id, string(req.RoomName), string(req.RoomCode), string(req.Username))
	if err != nil {
		Log.Infof("join rejected: conn=%s room=%s: %v", id, req.RoomName, err)
		g.hub.Send(id, EventErrorMsg, joinErrorMessage(err))
	}
}

func (g *Gateway) move(id PlayerID, in Inbound) {
	r, ok := g.rooms.RoomOf(id)
	if !ok {
		return
	}
	var mv MoveInput
	if err := in.Bind(&mv); err != nil {
		return
	}
	r.ApplyMove(id, mv)
}

func (g *Gateway) requestRespawn(id PlayerID) {
	if r, ok := g.rooms.RoomOf(id); ok {
		r.RespawnNow(id)
	}
}

func (g *Gateway) chat(id PlayerID, in Inbound) {
	r, ok := g.rooms.RoomOf(id)
	if !ok {
		return
	}
	var msg any
	if err := in.Bind(&msg); err != nil && !errors.Is(err, errEmptyPayload) {
		return
	}
	r.Chat(id, stringify(msg))
}
