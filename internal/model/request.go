package model

// CreateEventRequest 價格為原生幣單位的十進位字串，例如 "0.05"
type CreateEventRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Description    string `json:"description" binding:"max=2000"`
	Location       string `json:"location" binding:"required,max=200"`
	Price          string `json:"price" binding:"required,numeric"`
	EventTimestamp int64  `json:"event_timestamp" binding:"required,future_unix"`
	MaxSupply      int64  `json:"max_supply" binding:"required,gt=0"`
	Category       string `json:"category" binding:"omitempty,max=50"`
	Image          string `json:"image" binding:"omitempty,url"`
	Date           string `json:"date" binding:"omitempty,max=50"`
	Time           string `json:"time" binding:"omitempty,max=50"`
}

// Metadata 寫入合約的 metadata 欄位
func (r CreateEventRequest) Metadata() Metadata {
	return Metadata{Category: r.Category, Image: r.Image, Date: r.Date, Time: r.Time}
}

// token id 0 有效，所以用指標判斷是否有帶
type ListTicketRequest struct {
	TokenID *int64 `json:"token_id" binding:"required,gte=0"`
	Price   string `json:"price" binding:"required,numeric"`
}

type TransferRequest struct {
	To string `json:"to" binding:"required,eth_addr"`
}
