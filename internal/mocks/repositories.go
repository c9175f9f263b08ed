package mocks

import (
	"context"

	"nft-ticket-marketplace/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

type TicketRepositoryMock struct {
	mock.Mock
}

func NewTicketRepositoryMock() *TicketRepositoryMock {
	return &TicketRepositoryMock{}
}

func (m *TicketRepositoryMock) List(ctx context.Context) ([]*model.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) FindByID(ctx context.Context, id int64) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) IsRegistered(ctx context.Context, id int64, wallet common.Address) (bool, error) {
	args := m.Called(ctx, id, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *TicketRepositoryMock) FindListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResaleListing), args.Error(1)
}

func (m *TicketRepositoryMock) FindRegistrations(ctx context.Context, wallet common.Address) ([]model.Registration, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Registration), args.Error(1)
}

func (m *TicketRepositoryMock) PurchaseHash(ctx context.Context, ticketID int64, wallet common.Address) (string, error) {
	args := m.Called(ctx, ticketID, wallet)
	return args.String(0), args.Error(1)
}

func (m *TicketRepositoryMock) Invalidate(ctx context.Context, ticketID int64, wallets ...common.Address) error {
	args := m.Called(ctx, ticketID, wallets)
	return args.Error(0)
}

func (m *TicketRepositoryMock) InvalidateListing(ctx context.Context, tokenID int64) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *TicketRepositoryMock) InvalidateRecent(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *TicketRepositoryMock) Refresh(ctx context.Context) ([]*model.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

type ActivityRepositoryMock struct {
	mock.Mock
}

func NewActivityRepositoryMock() *ActivityRepositoryMock {
	return &ActivityRepositoryMock{}
}

func (m *ActivityRepositoryMock) Create(ctx context.Context, activity *model.Activity) (*model.Activity, error) {
	args := m.Called(ctx, activity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *ActivityRepositoryMock) ListByWallet(ctx context.Context, wallet string, limit int) ([]*model.Activity, error) {
	args := m.Called(ctx, wallet, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Activity), args.Error(1)
}

func (m *ActivityRepositoryMock) FindHash(ctx context.Context, wallet string, action model.TxAction, ticketID int64) (string, error) {
	args := m.Called(ctx, wallet, action, ticketID)
	return args.String(0), args.Error(1)
}
