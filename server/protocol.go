package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// 入站事件
const (
	EventJoinRoom       = "joinRoom"
	EventPlayerMove     = "playerMove"
	EventRespawnRequest = "respawnRequest"
	EventChatMessage    = "chat message"
)

// 出站事件
const (
	EventRegistered    = "registered"
	EventGameState     = "gameState"
	EventPlayersUpdate = "playersUpdate"
	EventDead          = "dead"
	EventRespawn       = "respawn"
	EventErrorMsg      = "errorMsg"
)

var errEmptyPayload = errors.New("empty payload")

// GameState 完整快照：玩家（脱敏）与当前子弹
type GameState struct {
	Players map[PlayerID]PlayerState `json:"players"`
	Bullets []Bullet                 `json:"bullets"`
}

// RespawnPayload 发给复活者本人
type RespawnPayload struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	HP int     `json:"hp"`
}

// ChatPayload 房间内广播的聊天消息
type ChatPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// JoinRequest joinRoom 的载荷
type JoinRequest struct {
	Username Text `json:"username"`
	RoomName Text `json:"roomName"`
	RoomCode Text `json:"roomCode"`
}

// MoveInput playerMove 的载荷；缺失或非法的字段保持原值，各字段互不影响
type MoveInput struct {
	X          OptFloat `json:"x"`
	Y          OptFloat `json:"y"`
	Angle      OptFloat `json:"angle"`
	IsShooting Flag     `json:"isShooting"`
}

// OptFloat 可缺省的数值；数字字符串（如 "250"）按数值接受，其余按缺省处理
type OptFloat struct {
	V     float64
	Valid bool
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	*o = OptFloat{}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if json.Unmarshal(b, &s) == nil {
			o.set(s)
		}
		return nil
	}
	var f float64
	if string(b) != "null" && json.Unmarshal(b, &f) == nil {
		*o = OptFloat{V: f, Valid: true}
	}
	return nil
}

func (o *OptFloat) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}
	*o = OptFloat{}
	switch x := v.(type) {
	case int64:
		*o = OptFloat{V: float64(x), Valid: true}
	case uint64:
		*o = OptFloat{V: float64(x), Valid: true}
	case float64:
		*o = OptFloat{V: x, Valid: true}
	case string:
		o.set(x)
	}
	return nil
}

func (o *OptFloat) set(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*o = OptFloat{V: f, Valid: true}
	}
}

// Flag 宽松布尔：非零数字、非空字符串、对象与数组都视为 true
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = false
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case 't', '{', '[':
		*f = true
	case 'f', 'n':
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			*f = s != ""
		}
	default:
		var n float64
		if json.Unmarshal(b, &n) == nil {
			*f = n != 0
		}
	}
	return nil
}

func (f *Flag) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(x)
	case int64:
		*f = x != 0
	case uint64:
		*f = x != 0
	case float64:
		*f = Flag(x != 0 && !math.IsNaN(x))
	case string:
		*f = x != ""
	default:
		*f = true
	}
	return nil
}

// Text 宽松字符串：接受 JSON 字符串或数字字面值（房间码常以数字发送）
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	switch {
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case string(b) == "null":
		*t = ""
	default:
		*t = Text(b)
	}
	return nil
}

func (t *Text) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}
	*t = Text(stringify(v))
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Inbound 已拆开信封、载荷尚未解码的入站消息
type Inbound struct {
	Event string
	data  []byte
	codec Codec
}

// Bind 按连接的编码把载荷解到 v
func (in Inbound) Bind(v any) error {
	if len(in.data) == 0 {
		return errEmptyPayload
	}
	return in.codec.Unmarshal(in.data, v)
}

// Codec 连接级的帧编码
type Codec interface {
	Name() string
	FrameType() int
	Encode(event string, payload any) ([]byte, error)
	Decode(frame []byte) (Inbound, error)
	Unmarshal(data []byte, v any) error
}

// CodecByName 未知名称回落到 JSON
func CodecByName(name string) Codec {
	if name == MsgpackCodec.Name() {
		return MsgpackCodec
	}
	return JSONCodec
}

var (
	JSONCodec    Codec = jsonCodec{}
	MsgpackCodec Codec = msgpackCodec{}
)

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type jsonCodec struct{}

type jsonInEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: event, Data: payload})
}

func (c jsonCodec) Decode(frame []byte) (Inbound, error) {
	var env jsonInEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode json envelope: %w", err)
	}
	return Inbound{Event: env.Event, data: env.Data, codec: c}, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// msgpackCodec 二进制帧，字段名沿用 json 标签
type msgpackCodec struct{}

type msgpackInEnvelope struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(outEnvelope{Event: event, Data: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c msgpackCodec) Decode(frame []byte) (Inbound, error) {
	var env msgpackInEnvelope
	if err := c.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode msgpack envelope: %w", err)
	}
	return Inbound{Event: env.Event, data: env.Data, codec: c}, nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
