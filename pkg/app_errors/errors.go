package apperrors

import "errors"

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrSlotNotFound        = errors.New("transaction slot not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternalServerError = errors.New("internal server error")

	// 購買前檢查：狀態不是 active 的活動不能購票
	ErrTicketUnavailable = errors.New("ticket is not available for purchase")
	ErrListingInactive   = errors.New("listing is not active")

	// TxLifecycle
	ErrOperationInFlight  = errors.New("an operation is already in flight for this slot")
	ErrInvalidTransition  = errors.New("invalid transaction state transition")
	ErrTrackerClosed      = errors.New("transaction tracker closed")
	ErrWalletNotConnected = errors.New("wallet not connected")

	// 鏈上資料
	ErrMalformedChainData = errors.New("malformed chain data")
	ErrHashUnavailable    = errors.New("transaction hash unavailable")
	ErrReceiptReverted    = errors.New("execution reverted")

	ErrCacheMiss = errors.New("cache miss")
)
