package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ResaleListing 二手市場掛單（唯讀）
type ResaleListing struct {
	TokenID  int64          `json:"token_id"`
	TicketID int64          `json:"ticket_id"`
	Seller   common.Address `json:"seller"`
	Price    *big.Int       `json:"price"`
	Active   bool           `json:"active"`
}

func (l *ResaleListing) PriceNative() decimal.Decimal {
	return WeiToNative(l.Price)
}

// MarkupPercent 相對原價的加價百分比，原價為 0 時無法計算
func (l *ResaleListing) MarkupPercent(original *big.Int) (decimal.Decimal, bool) {
	if original == nil || original.Sign() == 0 || l.Price == nil {
		return decimal.Zero, false
	}
	orig := decimal.NewFromBigInt(original, 0)
	diff := decimal.NewFromBigInt(l.Price, 0).Sub(orig)
	return diff.Div(orig).Mul(decimal.NewFromInt(100)).Round(2), true
}

// Registration 由 TicketRegistered log 解出的購票紀錄
type Registration struct {
	TicketID int64          `json:"ticket_id"`
	Attendee common.Address `json:"attendee"`
	TokenID  int64          `json:"token_id"`
	TxHash   common.Hash    `json:"tx_hash"`
	Block    uint64         `json:"block"`
}
