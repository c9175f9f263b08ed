package status

import (
	"time"

	"nft-ticket-marketplace/internal/metrics"
	"nft-ticket-marketplace/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Registration 三態：查詢中時為 Unknown，不能被當成已登記
type Registration int

const (
	RegistrationUnknown Registration = iota
	RegistrationNo
	RegistrationYes
)

// RegistrationFromBool 查詢成功時的結果
func RegistrationFromBool(ok bool) Registration {
	if ok {
		return RegistrationYes
	}
	return RegistrationNo
}

// Variant 列表頁不看個人登記狀態，詳情頁會看
type Variant int

const (
	VariantList Variant = iota
	VariantDetail
)

type Input struct {
	Ticket     *model.Ticket
	Listing    *model.ResaleListing
	Viewer     *common.Address
	Registered Registration
	Now        time.Time
	Variant    Variant
}

type Result struct {
	Status        model.EventStatus
	TicketsLeft   int64
	Trending      bool
	MarkupPercent decimal.Decimal
	HasMarkup     bool
}

type Engine struct {
	log *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Derive 依固定優先順序推導狀態：canceled > closed > passed > sold_out > registered > active/upcoming
func (e *Engine) Derive(in Input) Result {
	t := in.Ticket
	if t.OverSold() {
		e.log.Warn("ticket supply integrity",
			zap.Int64("ticket_id", t.ID),
			zap.Int64("sold", t.Sold),
			zap.Int64("max_supply", t.MaxSupply),
		)
		metrics.TrackIntegrityWarning()
	}

	res := Result{
		TicketsLeft: t.TicketsLeft(),
		Trending:    t.IsTrending(),
		Status:      e.resolve(in, t),
	}
	if in.Listing != nil {
		res.MarkupPercent, res.HasMarkup = in.Listing.MarkupPercent(t.Price)
	}
	return res
}

func (e *Engine) resolve(in Input, t *model.Ticket) model.EventStatus {
	switch {
	case t.Canceled:
		return model.EventStatusCanceled
	case t.Closed:
		return model.EventStatusClosed
	case passed(t, in.Now):
		return model.EventStatusPassed
	case t.TicketsLeft() == 0:
		return model.EventStatusSoldOut
	}
	if in.Variant == VariantList {
		return model.EventStatusUpcoming
	}
	// 沒有連接錢包時不可能是 registered
	if in.Viewer != nil && in.Registered == RegistrationYes {
		return model.EventStatusRegistered
	}
	return model.EventStatusActive
}

// timestamp 無效時不判定為 passed
func passed(t *model.Ticket, now time.Time) bool {
	if _, ok := t.EventTime(); !ok {
		return false
	}
	return t.EventTimeMillis() < now.UnixMilli()
}

// DeriveList 列表頁版本
func (e *Engine) DeriveList(t *model.Ticket, now time.Time) Result {
	return e.Derive(Input{Ticket: t, Now: now, Variant: VariantList})
}

// DeriveDetail 詳情頁版本
func (e *Engine) DeriveDetail(t *model.Ticket, viewer *common.Address, reg Registration, now time.Time) Result {
	return e.Derive(Input{Ticket: t, Viewer: viewer, Registered: reg, Now: now, Variant: VariantDetail})
}
