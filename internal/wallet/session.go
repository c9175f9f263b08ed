package wallet

import (
	"context"

	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/txlifecycle"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// Session 錢包連線；Signer 為 nil 代表唯讀模式（沒有設定私鑰）
type Session struct {
	Address  common.Address
	Signer   chain.Signer
	Trackers *txlifecycle.Registry
}

// Open 在啟動時建立 session 與所有 slot 共用的 tracker registry
func Open(ctx context.Context, signer chain.Signer, waiter txlifecycle.ReceiptWaiter) *Session {
	s := &Session{
		Signer:   signer,
		Trackers: txlifecycle.NewRegistry(ctx, waiter, logger.WithComponent("txlifecycle")),
	}
	if signer != nil {
		s.Address = signer.Address()
	}
	return s
}

func (s *Session) Connected() bool {
	return s != nil && s.Signer != nil
}

// Viewer 未連線時回傳 nil，狀態推導不會得到 registered
func (s *Session) Viewer() *common.Address {
	if !s.Connected() {
		return nil
	}
	addr := s.Address
	return &addr
}

// Close 取消所有進行中的操作並關閉訂閱
func (s *Session) Close() {
	s.Trackers.Close()
}
