package model

import (
	"github.com/shopspring/decimal"
)

// EventView 列表與詳情頁共用的活動顯示資料
type EventView struct {
	Ticket      *Ticket         `json:"ticket"`
	Meta        Metadata        `json:"metadata"`
	Status      EventStatus     `json:"status"`
	TicketsLeft int64           `json:"tickets_left"`
	Trending    bool            `json:"trending"`
	PriceNative decimal.Decimal `json:"price_native"`
	DisplayDate string          `json:"display_date"`
}

// EventDetail 詳情頁：額外帶上目前 viewer 的登記狀態
type EventDetail struct {
	EventView
	Viewer            string `json:"viewer,omitempty"`
	RegistrationKnown bool   `json:"registration_known"`
	Registered        bool   `json:"registered"`
}

// OwnedTicket 錢包頁顯示的已購票券
type OwnedTicket struct {
	TicketID      int64       `json:"ticket_id"`
	TokenID       int64       `json:"token_id"`
	Event         *EventView  `json:"event,omitempty"`
	Hash          string      `json:"hash,omitempty"`
	HashAvailable bool        `json:"hash_available"`
	Status        EventStatus `json:"status,omitempty"`
}

// ListingView 二手掛單與原票價比較
type ListingView struct {
	Listing       *ResaleListing   `json:"listing"`
	Event         *EventView       `json:"event,omitempty"`
	PriceNative   decimal.Decimal  `json:"price_native"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
}
