package catalog

import (
	"iter"
	"slices"
	"strings"

	"nft-ticket-marketplace/internal/model"

	"github.com/shopspring/decimal"
)

type SortBy string

const (
	SortNone      SortBy = ""
	SortRecent    SortBy = "recent"
	SortTrending  SortBy = "trending"
	SortPriceAsc  SortBy = "price_asc"
	SortPriceDesc SortBy = "price_desc"
)

func (s SortBy) IsValid() bool {
	switch s {
	case SortNone, SortRecent, SortTrending, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// PriceRange 固定價格區間（原生幣單位）
type PriceRange string

const (
	PriceAll        PriceRange = "all"
	PriceUnderTenth PriceRange = "0-0.1"
	PriceTenthHalf  PriceRange = "0.1-0.5"
	PriceHalfOne    PriceRange = "0.5-1"
	PriceOverOne    PriceRange = "1+"
)

var (
	tenth = decimal.RequireFromString("0.1")
	half  = decimal.RequireFromString("0.5")
	one   = decimal.NewFromInt(1)
)

func (p PriceRange) IsValid() bool {
	switch p {
	case "", PriceAll, PriceUnderTenth, PriceTenthHalf, PriceHalfOne, PriceOverOne:
		return true
	}
	return false
}

// Contains <0.1, [0.1,0.5], (0.5,1], >1
func (p PriceRange) Contains(price decimal.Decimal) bool {
	switch p {
	case PriceUnderTenth:
		return price.LessThan(tenth)
	case PriceTenthHalf:
		return price.GreaterThanOrEqual(tenth) && price.LessThanOrEqual(half)
	case PriceHalfOne:
		return price.GreaterThan(half) && price.LessThanOrEqual(one)
	case PriceOverOne:
		return price.GreaterThan(one)
	}
	return true
}

type Query struct {
	SearchTerm string          `form:"search"`
	Category   string          `form:"category"`
	PriceRange PriceRange      `form:"price"`
	SortBy     SortBy          `form:"sort"`
	StatusTab  model.StatusTab `form:"tab"`
}

func (q Query) Validate() bool {
	return q.PriceRange.IsValid() && q.SortBy.IsValid() && q.StatusTab.IsValid()
}

// FilterAndSort 回傳 lazy 且可重複 range 的序列；每次 range 都從輸入重新計算
func FilterAndSort(events []model.EventView, q Query) iter.Seq[model.EventView] {
	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))
	return func(yield func(model.EventView) bool) {
		matched := make([]model.EventView, 0, len(events))
		for _, ev := range events {
			if q.matches(ev, term) {
				matched = append(matched, ev)
			}
		}
		sortViews(matched, q.SortBy)
		for _, ev := range matched {
			if !yield(ev) {
				return
			}
		}
	}
}

func (q Query) matches(ev model.EventView, term string) bool {
	if term != "" && !matchesSearch(ev, term) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(q.Category, "all") && !strings.EqualFold(q.Category, ev.Meta.Category) {
		return false
	}
	if !q.PriceRange.Contains(ev.PriceNative) {
		return false
	}
	if q.StatusTab != "" && q.StatusTab != model.TabAll && model.TabOf(ev.Status) != q.StatusTab {
		return false
	}
	return true
}

func matchesSearch(ev model.EventView, term string) bool {
	fields := []string{ev.Meta.Category}
	if ev.Ticket != nil {
		fields = append(fields, ev.Ticket.EventName, ev.Ticket.Location)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func sortViews(views []model.EventView, by SortBy) {
	switch by {
	case SortTrending:
		slices.SortStableFunc(views, func(a, b model.EventView) int {
			switch {
			case a.Trending == b.Trending:
				return 0
			case a.Trending:
				return -1
			}
			return 1
		})
	case SortRecent:
		slices.SortStableFunc(views, func(a, b model.EventView) int {
			return compareInt64(timestampOf(b), timestampOf(a))
		})
	case SortPriceAsc:
		slices.SortStableFunc(views, func(a, b model.EventView) int {
			return a.PriceNative.Cmp(b.PriceNative)
		})
	case SortPriceDesc:
		slices.SortStableFunc(views, func(a, b model.EventView) int {
			return b.PriceNative.Cmp(a.PriceNative)
		})
	}
}

func timestampOf(v model.EventView) int64 {
	if v.Ticket == nil {
		return 0
	}
	return v.Ticket.EventTimestamp
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
