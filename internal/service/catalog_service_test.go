package service_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"nft-ticket-marketplace/internal/catalog"
	"nft-ticket-marketplace/internal/mocks"
	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/service"
	"nft-ticket-marketplace/internal/status"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	viewer   = common.HexToAddress("0xA000000000000000000000000000000000000001")
	creator  = common.HexToAddress("0xC000000000000000000000000000000000000001")
)

func clock() time.Time { return fixedNow }

func newTicket(id int64, name, metadata string, priceWei int64, sold int64) *model.Ticket {
	return &model.Ticket{
		ID:             id,
		Creator:        creator,
		Price:          big.NewInt(priceWei),
		EventName:      name,
		EventTimestamp: fixedNow.Add(30 * 24 * time.Hour).Unix(),
		Location:       "Taipei",
		Metadata:       metadata,
		MaxSupply:      100,
		Sold:           sold,
		TotalCollected: big.NewInt(0),
		TotalRefunded:  big.NewInt(0),
	}
}

func setupCatalog() (service.CatalogService, *mocks.TicketRepositoryMock, *mocks.ActivityRepositoryMock) {
	tickets := mocks.NewTicketRepositoryMock()
	activities := mocks.NewActivityRepositoryMock()
	svc := service.NewCatalogService(tickets, activities, status.NewEngine(nil), clock)
	return svc, tickets, activities
}

func TestCatalogService_ListEvents(t *testing.T) {
	svc, tickets, _ := setupCatalog()
	ctx := context.Background()

	canceled := newTicket(3, "Jazz Night", `{"category":"Music"}`, 5e17, 0)
	canceled.Canceled = true
	tickets.On("List", ctx).Return([]*model.Ticket{
		newTicket(1, "Devcon", `{"category":"Tech"}`, 1e17, 90),
		newTicket(2, "Rock Fest", `{"category":"Music"}`, 2e18, 10),
		canceled,
	}, nil)

	t.Run("AllEventsUseListVariant", func(t *testing.T) {
		views, err := svc.ListEvents(ctx, catalog.Query{})
		require.NoError(t, err)
		require.Len(t, views, 3)
		assert.Equal(t, model.EventStatusUpcoming, views[0].Status)
		assert.True(t, views[0].Trending)
		assert.Equal(t, model.EventStatusCanceled, views[2].Status)
	})

	t.Run("SearchAndSort", func(t *testing.T) {
		views, err := svc.ListEvents(ctx, catalog.Query{SearchTerm: "music", SortBy: catalog.SortPriceDesc})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, int64(2), views[0].Ticket.ID)
		assert.Equal(t, int64(3), views[1].Ticket.ID)
	})

	t.Run("Categories", func(t *testing.T) {
		cats, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Music", "Tech"}, cats)
	})

	// list variant 不查登記狀態
	tickets.AssertNotCalled(t, "IsRegistered", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_ListEvents_ChainError(t *testing.T) {
	svc, tickets, _ := setupCatalog()
	ctx := context.Background()
	tickets.On("List", ctx).Return(nil, errors.New("dial tcp: connection refused"))

	_, err := svc.ListEvents(ctx, catalog.Query{})
	require.Error(t, err)
}

func TestCatalogService_GetEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("RegisteredViewer", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindByID", ctx, int64(1)).Return(newTicket(1, "Devcon", "", 1e17, 10), nil)
		tickets.On("IsRegistered", ctx, int64(1), viewer).Return(true, nil)

		detail, err := svc.GetEvent(ctx, 1, &viewer)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusRegistered, detail.Status)
		assert.True(t, detail.RegistrationKnown)
		assert.True(t, detail.Registered)
		assert.Equal(t, viewer.Hex(), detail.Viewer)
	})

	t.Run("NoViewer", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindByID", ctx, int64(1)).Return(newTicket(1, "Devcon", "", 1e17, 10), nil)

		detail, err := svc.GetEvent(ctx, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusActive, detail.Status)
		assert.False(t, detail.RegistrationKnown)
		tickets.AssertNotCalled(t, "IsRegistered", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RegistrationLookupFailureIsUnknown", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindByID", ctx, int64(1)).Return(newTicket(1, "Devcon", "", 1e17, 10), nil)
		tickets.On("IsRegistered", ctx, int64(1), viewer).Return(false, errors.New("timeout"))

		detail, err := svc.GetEvent(ctx, 1, &viewer)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusActive, detail.Status)
		assert.False(t, detail.RegistrationKnown)
		assert.False(t, detail.Registered)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindByID", ctx, int64(9)).Return(nil, apperrors.ErrTicketNotFound)

		_, err := svc.GetEvent(ctx, 9, &viewer)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestCatalogService_RegistrationMap(t *testing.T) {
	svc, tickets, _ := setupCatalog()
	ctx := context.Background()

	tickets.On("IsRegistered", mock.Anything, int64(1), viewer).Return(true, nil)
	tickets.On("IsRegistered", mock.Anything, int64(2), viewer).Return(false, nil)
	tickets.On("IsRegistered", mock.Anything, int64(3), viewer).Return(false, errors.New("rpc error"))

	got := svc.RegistrationMap(ctx, viewer, []int64{1, 2, 3})
	assert.Equal(t, map[int64]bool{1: true, 2: false, 3: false}, got)
}

func TestCatalogService_MyTickets(t *testing.T) {
	ctx := context.Background()
	journalHash := "0xfeed"

	t.Run("HashDiscovery", func(t *testing.T) {
		svc, tickets, activities := setupCatalog()
		tickets.On("FindRegistrations", ctx, viewer).Return([]model.Registration{
			{TicketID: 1, Attendee: viewer, TokenID: 10},
			{TicketID: 2, Attendee: viewer, TokenID: 11, TxHash: common.HexToHash("0x22")},
			{TicketID: 3, Attendee: viewer, TokenID: 12},
		}, nil)
		for _, id := range []int64{1, 2, 3} {
			tickets.On("FindByID", mock.Anything, id).Return(newTicket(id, "Event", "", 1e17, 1), nil)
		}
		activities.On("FindHash", mock.Anything, viewer.Hex(), model.TxActionBuyTicket, int64(1)).Return(journalHash, nil)
		activities.On("FindHash", mock.Anything, viewer.Hex(), model.TxActionBuyTicket, int64(2)).Return("", apperrors.ErrHashUnavailable)
		activities.On("FindHash", mock.Anything, viewer.Hex(), model.TxActionBuyTicket, int64(3)).Return("", apperrors.ErrHashUnavailable)
		tickets.On("PurchaseHash", mock.Anything, int64(3), viewer).Return("", apperrors.ErrHashUnavailable)

		owned, err := svc.MyTickets(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, owned, 3)

		assert.True(t, owned[0].HashAvailable)
		assert.Equal(t, journalHash, owned[0].Hash)

		assert.True(t, owned[1].HashAvailable)
		assert.Equal(t, common.HexToHash("0x22").Hex(), owned[1].Hash)

		assert.False(t, owned[2].HashAvailable)
		assert.Empty(t, owned[2].Hash)

		for _, o := range owned {
			assert.Equal(t, model.EventStatusRegistered, o.Status)
			require.NotNil(t, o.Event)
		}
	})

	t.Run("MissingEventStillListed", func(t *testing.T) {
		svc, tickets, activities := setupCatalog()
		tickets.On("FindRegistrations", ctx, viewer).Return([]model.Registration{
			{TicketID: 4, Attendee: viewer, TokenID: 13, TxHash: common.HexToHash("0x44")},
		}, nil)
		tickets.On("FindByID", mock.Anything, int64(4)).Return(nil, errors.New("rpc error"))
		activities.On("FindHash", mock.Anything, viewer.Hex(), model.TxActionBuyTicket, int64(4)).Return("", errors.New("db down"))

		owned, err := svc.MyTickets(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Nil(t, owned[0].Event)
		assert.True(t, owned[0].HashAvailable)
	})

	t.Run("RegistrationsUnavailable", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindRegistrations", ctx, viewer).Return(nil, errors.New("rpc error"))

		_, err := svc.MyTickets(ctx, viewer)
		require.Error(t, err)
	})
}

func TestCatalogService_GetListing(t *testing.T) {
	ctx := context.Background()
	listing := &model.ResaleListing{TokenID: 11, TicketID: 1, Seller: viewer, Price: big.NewInt(15e16), Active: true}

	t.Run("WithMarkup", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindListing", ctx, int64(11)).Return(listing, nil)
		tickets.On("FindByID", ctx, int64(1)).Return(newTicket(1, "Devcon", "", 1e17, 10), nil)

		view, err := svc.GetListing(ctx, 11)
		require.NoError(t, err)
		require.NotNil(t, view.MarkupPercent)
		assert.Equal(t, "50", view.MarkupPercent.String())
		assert.Equal(t, "0.15", view.PriceNative.String())
		require.NotNil(t, view.Event)
	})

	t.Run("FreeEventHasNoMarkup", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindListing", ctx, int64(11)).Return(listing, nil)
		tickets.On("FindByID", ctx, int64(1)).Return(newTicket(1, "Meetup", "", 0, 10), nil)

		view, err := svc.GetListing(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, view.MarkupPercent)
	})

	t.Run("EventLookupFails", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindListing", ctx, int64(11)).Return(listing, nil)
		tickets.On("FindByID", ctx, int64(1)).Return(nil, errors.New("rpc error"))

		view, err := svc.GetListing(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, view.Event)
		assert.Nil(t, view.MarkupPercent)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, tickets, _ := setupCatalog()
		tickets.On("FindListing", ctx, int64(12)).Return(nil, apperrors.ErrListingNotFound)

		_, err := svc.GetListing(ctx, 12)
		assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
	})
}

func TestCatalogService_Activity(t *testing.T) {
	svc, _, activities := setupCatalog()
	ctx := context.Background()
	want := []*model.Activity{{Wallet: viewer.Hex(), Action: model.TxActionBuyTicket, Outcome: model.TxPhaseSettled}}
	activities.On("ListByWallet", ctx, viewer.Hex(), 20).Return(want, nil)

	got, err := svc.Activity(ctx, viewer, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
