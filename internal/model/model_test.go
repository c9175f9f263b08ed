package model_test

import (
	"math"
	"math/big"
	"testing"

	"nft-ticket-marketplace/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseMetadata(t *testing.T) {
	t.Run("malformed json falls back to defaults", func(t *testing.T) {
		meta := model.ParseMetadata("not json")
		assert.Equal(t, model.DefaultCategory, meta.Category)
		assert.Equal(t, model.PlaceholderImage, meta.Image)
	})

	t.Run("empty string", func(t *testing.T) {
		meta := model.ParseMetadata("")
		assert.Equal(t, "Event", meta.Category)
	})

	t.Run("json array is not metadata", func(t *testing.T) {
		meta := model.ParseMetadata(`["Music"]`)
		assert.Equal(t, model.DefaultCategory, meta.Category)
	})

	t.Run("partial fields", func(t *testing.T) {
		meta := model.ParseMetadata(`{"category":"Music","date":"2026-05-01"}`)
		assert.Equal(t, "Music", meta.Category)
		assert.Equal(t, model.PlaceholderImage, meta.Image)
		assert.Equal(t, "2026-05-01", meta.Date)
		assert.Empty(t, meta.Time)
	})

	t.Run("all fields", func(t *testing.T) {
		meta := model.ParseMetadata(`{"category":"Tech","image":"ipfs://abc","date":"2026-05-01","time":"19:00"}`)
		assert.Equal(t, model.Metadata{Category: "Tech", Image: "ipfs://abc", Date: "2026-05-01", Time: "19:00"}, meta)
	})
}

func TestTicket_Derived(t *testing.T) {
	ticket := &model.Ticket{MaxSupply: 10, Sold: 12, Price: big.NewInt(5e17)}
	assert.Equal(t, int64(0), ticket.TicketsLeft())
	assert.True(t, ticket.OverSold())
	assert.True(t, ticket.PriceNative().Equal(decimal.RequireFromString("0.5")))

	_, ok := ticket.EventTime()
	assert.False(t, ok)

	ticket.EventTimestamp = 1700000000
	ts, ok := ticket.EventTime()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())
	assert.Equal(t, int64(1700000000000), ticket.EventTimeMillis())
}

func TestTicket_ExtremeValues(t *testing.T) {
	t.Run("timestamp beyond millisecond range is not a date", func(t *testing.T) {
		ticket := &model.Ticket{EventTimestamp: 1e16}
		_, ok := ticket.EventTime()
		assert.False(t, ok)
		assert.Equal(t, int64(0), ticket.EventTimeMillis())

		ticket.EventTimestamp = model.MaxEventTimestamp
		_, ok = ticket.EventTime()
		assert.True(t, ok)
		assert.Equal(t, int64(model.MaxEventTimestamp)*1000, ticket.EventTimeMillis())
	})

	t.Run("trending does not overflow", func(t *testing.T) {
		ticket := &model.Ticket{Sold: 1 << 61, MaxSupply: 1 << 62}
		assert.False(t, ticket.IsTrending())

		ticket = &model.Ticket{Sold: math.MaxInt64, MaxSupply: math.MaxInt64}
		assert.True(t, ticket.IsTrending())
	})

	t.Run("trending boundary is strict", func(t *testing.T) {
		assert.False(t, (&model.Ticket{Sold: 7, MaxSupply: 10}).IsTrending())
		assert.True(t, (&model.Ticket{Sold: 8, MaxSupply: 10}).IsTrending())
	})
}

func TestNativeConversion(t *testing.T) {
	assert.Equal(t, "500000000000000000", model.NativeToWei(decimal.RequireFromString("0.5")).String())
	assert.True(t, model.WeiToNative(nil).IsZero())
	assert.Equal(t, "0.000000000000000001", model.WeiToNative(big.NewInt(1)).String())
}

func TestTxPhase_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to model.TxPhase
		ok       bool
	}{
		{model.TxPhaseIdle, model.TxPhaseSubmitting, true},
		{model.TxPhaseIdle, model.TxPhaseSettled, false},
		{model.TxPhaseSubmitting, model.TxPhaseAwaitingWalletConfirmation, true},
		{model.TxPhaseSubmitting, model.TxPhaseAwaitingChainConfirmation, true},
		{model.TxPhaseAwaitingWalletConfirmation, model.TxPhaseSubmitting, false},
		{model.TxPhaseAwaitingChainConfirmation, model.TxPhaseSettled, true},
		{model.TxPhaseAwaitingChainConfirmation, model.TxPhaseIdle, false},
		{model.TxPhaseSettled, model.TxPhaseIdle, true},
		{model.TxPhaseFailed, model.TxPhaseSubmitting, true},
		{model.TxPhaseFailed, model.TxPhaseSettled, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}

	assert.True(t, model.TxPhaseSubmitting.AwaitingWallet())
	assert.True(t, model.TxPhaseAwaitingWalletConfirmation.AwaitingWallet())
	assert.False(t, model.TxPhaseAwaitingChainConfirmation.AcceptsSubmit())
	assert.False(t, model.TxPhase("bogus").IsValid())
}

func TestTxState_ShortHash(t *testing.T) {
	h := "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	s := model.TxState{Hash: &h}
	assert.Equal(t, "0x1234...cdef", s.ShortHash())
	assert.Empty(t, model.TxState{}.ShortHash())
	assert.Equal(t, "Ticket purchased", model.TxActionBuyTicket.SuccessNotice())
}

func TestTabOf(t *testing.T) {
	assert.Equal(t, model.TabUpcoming, model.TabOf(model.EventStatusSoldOut))
	assert.Equal(t, model.TabUpcoming, model.TabOf(model.EventStatusRegistered))
	assert.Equal(t, model.TabClosed, model.TabOf(model.EventStatusClosed))
}

func TestEventStatus_Purchasable(t *testing.T) {
	assert.True(t, model.EventStatusActive.Purchasable())
	assert.True(t, model.EventStatusUpcoming.Purchasable())
	for _, s := range []model.EventStatus{
		model.EventStatusPassed, model.EventStatusCanceled, model.EventStatusClosed,
		model.EventStatusSoldOut, model.EventStatusRegistered,
	} {
		assert.False(t, s.Purchasable(), s)
	}
}
