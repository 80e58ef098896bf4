package server

import (
	"errors"
	"fmt"
)

// ErrorCode 客户端可恢复的错误分类
type ErrorCode string

const (
	CodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadCredentials ErrorCode = "BAD_CREDENTIALS"
	CodeNameTaken      ErrorCode = "NAME_TAKEN"
)

// GameError 带分类码与面向玩家提示语的错误
type GameError struct {
	Code    ErrorCode
	Message string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is 按分类码比较
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// 预定义错误；提示语直接展示给客户端
var (
	ErrInvalidRoom    = &GameError{Code: CodeInvalidRequest, Message: "ข้อมูลห้องไม่ถูกต้อง"}
	ErrInvalidLogin   = &GameError{Code: CodeInvalidRequest, Message: "ข้อมูลไม่ครบหรือไม่ถูกต้อง"}
	ErrAlreadyJoined  = &GameError{Code: CodeInvalidRequest, Message: "คุณอยู่ในห้องแล้ว"}
	ErrRoomExists     = &GameError{Code: CodeConflict, Message: "ห้องนี้มีอยู่แล้ว"}
	ErrRoomNotFound   = &GameError{Code: CodeNotFound, Message: "ไม่พบห้องนี้"}
	ErrBadCredentials = &GameError{Code: CodeBadCredentials, Message: "รหัสห้องไม่ถูกต้อง"}
	ErrNameTaken      = &GameError{Code: CodeNameTaken, Message: "ชื่อผู้เล่นนี้มีคนใช้แล้วในห้อง"}
)

// errJoinRejected 加入失败时不区分“房间不存在”与“密码错误”
const errJoinRejected = "ไม่พบห้องหรือรหัสไม่ถูกต้อง"

// CodeOf 取出错误分类码，非 GameError 返回空串
func CodeOf(err error) ErrorCode {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// MessageOf 取出面向玩家的提示语
func MessageOf(err error) string {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}

// joinErrorMessage 加入失败时发给客户端的 errorMsg
func joinErrorMessage(err error) string {
	switch CodeOf(err) {
	case CodeNotFound, CodeBadCredentials:
		return errJoinRejected
	default:
		return MessageOf(err)
	}
}
