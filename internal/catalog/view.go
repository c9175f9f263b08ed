package catalog

import (
	"slices"
	"strings"

	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/status"
)

const DateNotAvailable = "Date not available"

// NewEventView 組出顯示用資料
func NewEventView(t *model.Ticket, res status.Result) model.EventView {
	v := model.EventView{
		Ticket:      t,
		Meta:        t.ParsedMetadata(),
		Status:      res.Status,
		TicketsLeft: res.TicketsLeft,
		Trending:    res.Trending,
		PriceNative: t.PriceNative(),
	}
	v.DisplayDate = DisplayDate(v)
	return v
}

// DisplayDate metadata 有日期時優先使用，否則用鏈上 timestamp
func DisplayDate(v model.EventView) string {
	if v.Meta.Date != "" {
		if v.Meta.Time != "" {
			return v.Meta.Date + " " + v.Meta.Time
		}
		return v.Meta.Date
	}
	if v.Ticket == nil {
		return DateNotAvailable
	}
	ts, ok := v.Ticket.EventTime()
	if !ok {
		return DateNotAvailable
	}
	return ts.Format("Mon, Jan 2, 2006 15:04 MST")
}

// Categories 分類下拉選單
func Categories(events []model.EventView) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, ev := range events {
		key := strings.ToLower(ev.Meta.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev.Meta.Category)
	}
	slices.Sort(out)
	return out
}
