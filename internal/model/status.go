package model

// EventStatus 由 StatusEngine 推導出的顯示狀態
type EventStatus string

const (
	EventStatusUpcoming   EventStatus = "upcoming"
	EventStatusActive     EventStatus = "active"
	EventStatusPassed     EventStatus = "passed"
	EventStatusCanceled   EventStatus = "canceled"
	EventStatusClosed     EventStatus = "closed"
	EventStatusSoldOut    EventStatus = "sold_out"
	EventStatusRegistered EventStatus = "registered"
)

// Purchasable 只有 active / upcoming 可以購票
func (s EventStatus) Purchasable() bool {
	return s == EventStatusActive || s == EventStatusUpcoming
}

// StatusTab 列表頁分頁
type StatusTab string

const (
	TabAll      StatusTab = "all"
	TabUpcoming StatusTab = "upcoming"
	TabPassed   StatusTab = "passed"
	TabCanceled StatusTab = "canceled"
	TabClosed   StatusTab = "closed"
)

func (t StatusTab) IsValid() bool {
	switch t {
	case "", TabAll, TabUpcoming, TabPassed, TabCanceled, TabClosed:
		return true
	}
	return false
}

// TabOf 狀態對應的分頁；sold_out / registered / active 都算在 upcoming
func TabOf(s EventStatus) StatusTab {
	switch s {
	case EventStatusCanceled:
		return TabCanceled
	case EventStatusClosed:
		return TabClosed
	case EventStatusPassed:
		return TabPassed
	}
	return TabUpcoming
}
