package service

import "errors"

var (
	// ErrValidation 缺少进入下一阶段所需的输入，阶段不变
	ErrValidation = errors.New("validation error")
	// ErrGeneration 远程生成失败
	ErrGeneration = errors.New("generation error")
	// ErrDecode 图像无法解码为位图
	ErrDecode = errors.New("decode error")
	// ErrRemoval 抠像失败
	ErrRemoval = errors.New("removal error")
	// ErrExportUnavailable 合成画布尚未就绪
	ErrExportUnavailable = errors.New("export unavailable")
	// ErrInvalidEvent 当前阶段不接受该操作
	ErrInvalidEvent = errors.New("event not valid in current stage")
	// ErrStaleResult 异步结果属于已被重置的流程
	ErrStaleResult = errors.New("stale result")
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")
)
