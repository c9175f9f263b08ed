package apperrors

import (
	"context"
	"errors"
	"strings"
)

// ErrorKind 錢包 / RPC 錯誤分類，只靠錯誤訊息字串判斷（鏈上沒有結構化錯誤碼）
type ErrorKind string

const (
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindUserRejected      ErrorKind = "user_rejected"
	KindNetworkError      ErrorKind = "network_error"
	KindReverted          ErrorKind = "reverted"
	KindRPCInternalError  ErrorKind = "rpc_internal_error"
	KindUnknown           ErrorKind = "unknown"
)

const maxMessageRunes = 120

// 順序有意義：先比對較具體的片段
var kindPatterns = []struct {
	kind     ErrorKind
	patterns []string
}{
	{KindUserRejected, []string{"user rejected", "user denied", "rejected the request", "request rejected"}},
	{KindInsufficientFunds, []string{"insufficient funds", "exceeds balance", "insufficient balance"}},
	{KindReverted, []string{"execution reverted", "reverted", "revert"}},
	{KindRPCInternalError, []string{"internal json-rpc error", "internal error", "-32603"}},
	{KindNetworkError, []string{"network", "connection refused", "no such host", "dial tcp", "fetch failed", "i/o timeout", "eof"}},
}

// Classify 將底層錯誤歸類成 ErrorKind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrReceiptReverted) {
		return KindReverted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkError
	}
	msg := strings.ToLower(err.Error())
	for _, p := range kindPatterns {
		for _, s := range p.patterns {
			if strings.Contains(msg, s) {
				return p.kind
			}
		}
	}
	return KindUnknown
}

// IsTransient RPC 內部錯誤與網路錯誤視為暫時性；本系統不會自動重試，只用於提示文字
func (k ErrorKind) IsTransient() bool {
	return k == KindRPCInternalError || k == KindNetworkError
}

// UserMessage 依分類回傳給使用者的訊息，Unknown 則附上截斷後的原始訊息
func UserMessage(kind ErrorKind, err error) string {
	switch kind {
	case KindInsufficientFunds:
		return "Insufficient funds in your wallet to complete this transaction"
	case KindUserRejected:
		return "Transaction was rejected in your wallet"
	case KindNetworkError:
		return "Network error. Please check your connection and try again"
	case KindReverted:
		return "Transaction reverted by the contract"
	case KindRPCInternalError:
		return "The RPC provider reported an internal error. Please try again shortly"
	}
	if err == nil {
		return "Transaction failed"
	}
	return "Transaction failed: " + truncate(err.Error(), maxMessageRunes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
