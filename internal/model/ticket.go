package model

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeDecimals 1 原生幣 = 1e18 wei
const NativeDecimals = 18

// MaxEventTimestamp 換算成毫秒仍在 int64 範圍內的最大秒數
const MaxEventTimestamp = math.MaxInt64 / 1000

// Ticket 鏈上活動票務紀錄（唯讀，本系統只會在寫入完成後重新讀取）
type Ticket struct {
	ID                int64          `json:"id"`
	Creator           common.Address `json:"creator"`
	Price             *big.Int       `json:"price"`
	EventName         string         `json:"event_name"`
	Description       string         `json:"description"`
	EventTimestamp    int64          `json:"event_timestamp"`
	Location          string         `json:"location"`
	Closed            bool           `json:"closed"`
	Canceled          bool           `json:"canceled"`
	Metadata          string         `json:"metadata"`
	MaxSupply         int64          `json:"max_supply"`
	Sold              int64          `json:"sold"`
	TotalCollected    *big.Int       `json:"total_collected"`
	TotalRefunded     *big.Int       `json:"total_refunded"`
	ProceedsWithdrawn bool           `json:"proceeds_withdrawn"`
}

// TicketsLeft 剩餘票數，永遠 >= 0
func (t *Ticket) TicketsLeft() int64 {
	if t.Sold >= t.MaxSupply {
		return 0
	}
	return t.MaxSupply - t.Sold
}

// OverSold 上游資料異常：sold 超過 maxSupply
func (t *Ticket) OverSold() bool {
	return t.Sold > t.MaxSupply
}

// IsTrending sold > 0.7 * maxSupply（嚴格大於，以 big.Int 計算避免溢位）
func (t *Ticket) IsTrending() bool {
	sold := new(big.Int).Mul(big.NewInt(t.Sold), big.NewInt(10))
	limit := new(big.Int).Mul(big.NewInt(t.MaxSupply), big.NewInt(7))
	return sold.Cmp(limit) > 0
}

// EventTime 活動時間；timestamp 不是有效日期時回傳 false
func (t *Ticket) EventTime() (time.Time, bool) {
	if t.EventTimestamp <= 0 || t.EventTimestamp > MaxEventTimestamp {
		return time.Time{}, false
	}
	return time.Unix(t.EventTimestamp, 0).UTC(), true
}

// EventTimeMillis 以毫秒表示的活動時間，無效日期回傳 0
func (t *Ticket) EventTimeMillis() int64 {
	if _, ok := t.EventTime(); !ok {
		return 0
	}
	return t.EventTimestamp * 1000
}

// PriceNative 票價換算成原生幣單位
func (t *Ticket) PriceNative() decimal.Decimal {
	return WeiToNative(t.Price)
}

func (t *Ticket) ParsedMetadata() Metadata {
	return ParseMetadata(t.Metadata)
}

func WeiToNative(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}

// NativeToWei 原生幣轉 wei，小數第 18 位以下捨去
func NativeToWei(v decimal.Decimal) *big.Int {
	return v.Shift(NativeDecimals).Truncate(0).BigInt()
}
