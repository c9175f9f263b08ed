package mocks

import (
	"context"
	"math/big"

	"nft-ticket-marketplace/internal/catalog"
	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

type CatalogServiceMock struct {
	mock.Mock
}

func NewCatalogServiceMock() *CatalogServiceMock {
	return &CatalogServiceMock{}
}

func (m *CatalogServiceMock) ListEvents(ctx context.Context, q catalog.Query) ([]model.EventView, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EventView), args.Error(1)
}

func (m *CatalogServiceMock) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *CatalogServiceMock) GetEvent(ctx context.Context, id int64, viewer *common.Address) (*model.EventDetail, error) {
	args := m.Called(ctx, id, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventDetail), args.Error(1)
}

func (m *CatalogServiceMock) RegistrationMap(ctx context.Context, viewer common.Address, ids []int64) map[int64]bool {
	args := m.Called(ctx, viewer, ids)
	return args.Get(0).(map[int64]bool)
}

func (m *CatalogServiceMock) MyTickets(ctx context.Context, viewer common.Address) ([]model.OwnedTicket, error) {
	args := m.Called(ctx, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OwnedTicket), args.Error(1)
}

func (m *CatalogServiceMock) GetListing(ctx context.Context, tokenID int64) (*model.ListingView, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ListingView), args.Error(1)
}

func (m *CatalogServiceMock) Activity(ctx context.Context, wallet common.Address, limit int) ([]*model.Activity, error) {
	args := m.Called(ctx, wallet, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Activity), args.Error(1)
}

type TxServiceMock struct {
	mock.Mock
}

func NewTxServiceMock() *TxServiceMock {
	return &TxServiceMock{}
}

func (m *TxServiceMock) state(args mock.Arguments) (model.TxState, error) {
	st, _ := args.Get(0).(model.TxState)
	return st, args.Error(1)
}

func (m *TxServiceMock) CreateEvent(ctx context.Context, p service.CreateEventParams) (model.TxState, error) {
	return m.state(m.Called(ctx, p))
}

func (m *TxServiceMock) BuyTicket(ctx context.Context, ticketID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, ticketID))
}

func (m *TxServiceMock) CancelEvent(ctx context.Context, ticketID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, ticketID))
}

func (m *TxServiceMock) CloseEvent(ctx context.Context, ticketID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, ticketID))
}

func (m *TxServiceMock) ClaimRefund(ctx context.Context, ticketID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, ticketID))
}

func (m *TxServiceMock) WithdrawProceeds(ctx context.Context, ticketID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, ticketID))
}

func (m *TxServiceMock) ListForResale(ctx context.Context, tokenID int64, price *big.Int) (model.TxState, error) {
	return m.state(m.Called(ctx, tokenID, price))
}

func (m *TxServiceMock) BuyResale(ctx context.Context, tokenID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, tokenID))
}

func (m *TxServiceMock) CancelListing(ctx context.Context, tokenID int64) (model.TxState, error) {
	return m.state(m.Called(ctx, tokenID))
}

func (m *TxServiceMock) Transfer(ctx context.Context, tokenID int64, to common.Address) (model.TxState, error) {
	return m.state(m.Called(ctx, tokenID, to))
}

func (m *TxServiceMock) State(slot string) (model.TxState, error) {
	return m.state(m.Called(slot))
}

func (m *TxServiceMock) Pending() []model.TxState {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.TxState)
}

func (m *TxServiceMock) Dismiss(slot string) error {
	args := m.Called(slot)
	return args.Error(0)
}

func (m *TxServiceMock) Subscribe(slot string) (<-chan model.TxState, func(), error) {
	args := m.Called(slot)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var ch <-chan model.TxState
	switch c := args.Get(0).(type) {
	case chan model.TxState:
		ch = c
	case <-chan model.TxState:
		ch = c
	}
	unsubscribe, _ := args.Get(1).(func())
	if unsubscribe == nil {
		unsubscribe = func() {}
	}
	return ch, unsubscribe, args.Error(2)
}
