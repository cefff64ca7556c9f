package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount 金额或佣金费率不合法
	ErrInvalidAmount = errors.New("invalid amount or commission rate")
	// ErrInvalidTransition 状态迁移不合法（含并发条件更新失败）
	ErrInvalidTransition = errors.New("invalid escrow transition")
	// ErrAlreadyTerminal 交易已处于终态
	ErrAlreadyTerminal = errors.New("escrow transaction already terminal")
	// ErrInvalidDisputeOutcome 争议裁决结果不合法
	ErrInvalidDisputeOutcome = errors.New("invalid dispute outcome")
	// ErrPaymentFailed 支付网关调用失败，交易保持原状态
	ErrPaymentFailed = errors.New("payment gateway call failed")
	// ErrNotFound 交易不存在
	ErrNotFound = errors.New("escrow transaction not found")
)

// InvalidTransitionError 携带当前状态与尝试状态的迁移错误
type InvalidTransitionError struct {
	Current   Status
	Attempted Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid escrow transition from %s to %s", e.Current, e.Attempted)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AlreadyTerminalError 终态交易上的迁移尝试
type AlreadyTerminalError struct {
	Current   Status
	Attempted Status
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("escrow transaction is terminal in state %s, cannot transition to %s", e.Current, e.Attempted)
}

func (e *AlreadyTerminalError) Unwrap() error { return ErrAlreadyTerminal }
