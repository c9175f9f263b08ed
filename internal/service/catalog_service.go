package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"nft-ticket-marketplace/internal/catalog"
	"nft-ticket-marketplace/internal/metrics"
	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/repository"
	"nft-ticket-marketplace/internal/status"
	apperrors "nft-ticket-marketplace/pkg/app_errors"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 錢包頁與列表頁同時查詢 isRegistered 的上限
const lookupConcurrency = 8

type CatalogService interface {
	ListEvents(ctx context.Context, q catalog.Query) ([]model.EventView, error)
	Categories(ctx context.Context) ([]string, error)
	GetEvent(ctx context.Context, id int64, viewer *common.Address) (*model.EventDetail, error)
	// RegistrationMap 查詢失敗的活動一律視為未登記
	RegistrationMap(ctx context.Context, viewer common.Address, ids []int64) map[int64]bool
	MyTickets(ctx context.Context, viewer common.Address) ([]model.OwnedTicket, error)
	GetListing(ctx context.Context, tokenID int64) (*model.ListingView, error)
	Activity(ctx context.Context, wallet common.Address, limit int) ([]*model.Activity, error)
}

type CatalogServiceImpl struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	engine     *status.Engine
	now        func() time.Time
	log        *zap.Logger
}

func NewCatalogService(
	tickets repository.TicketRepository,
	activities repository.ActivityRepository,
	engine *status.Engine,
	now func() time.Time,
) CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogServiceImpl{
		tickets:    tickets,
		activities: activities,
		engine:     engine,
		now:        now,
		log:        logger.WithComponent("service"),
	}
}

func (s *CatalogServiceImpl) ListEvents(ctx context.Context, q catalog.Query) ([]model.EventView, error) {
	views, err := s.listViews(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Collect(catalog.FilterAndSort(views, q)), nil
}

func (s *CatalogServiceImpl) Categories(ctx context.Context) ([]string, error) {
	views, err := s.listViews(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Categories(views), nil
}

// listViews 列表頁不查個人登記狀態
func (s *CatalogServiceImpl) listViews(ctx context.Context) ([]model.EventView, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]model.EventView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, catalog.NewEventView(t, s.engine.DeriveList(t, now)))
	}
	return views, nil
}

func (s *CatalogServiceImpl) GetEvent(ctx context.Context, id int64, viewer *common.Address) (*model.EventDetail, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reg := s.registration(ctx, id, viewer)
	res := s.engine.DeriveDetail(ticket, viewer, reg, s.now())

	detail := &model.EventDetail{
		EventView:         catalog.NewEventView(ticket, res),
		RegistrationKnown: viewer != nil && reg != status.RegistrationUnknown,
		Registered:        reg == status.RegistrationYes,
	}
	if viewer != nil {
		detail.Viewer = viewer.Hex()
	}
	return detail, nil
}

// registration 查詢失敗時回 Unknown，詳情頁仍可顯示
func (s *CatalogServiceImpl) registration(ctx context.Context, id int64, viewer *common.Address) status.Registration {
	if viewer == nil {
		return status.RegistrationUnknown
	}
	ok, err := s.tickets.IsRegistered(ctx, id, *viewer)
	if err != nil {
		metrics.TrackDegradedLookup("registration")
		s.log.Warn("registration lookup failed",
			zap.Int64("ticket_id", id),
			zap.String("viewer", viewer.Hex()),
			zap.Error(err),
		)
		return status.RegistrationUnknown
	}
	return status.RegistrationFromBool(ok)
}

func (s *CatalogServiceImpl) RegistrationMap(ctx context.Context, viewer common.Address, ids []int64) map[int64]bool {
	result := make(map[int64]bool, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			ok, err := s.tickets.IsRegistered(gctx, id, viewer)
			if err != nil {
				metrics.TrackDegradedLookup("registration")
				s.log.Warn("registration lookup failed",
					zap.Int64("ticket_id", id),
					zap.String("viewer", viewer.Hex()),
					zap.Error(err),
				)
				ok = false
			}
			mu.Lock()
			result[id] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (s *CatalogServiceImpl) MyTickets(ctx context.Context, viewer common.Address) ([]model.OwnedTicket, error) {
	regs, err := s.tickets.FindRegistrations(ctx, viewer)
	if err != nil {
		return nil, err
	}

	owned := make([]model.OwnedTicket, len(regs))
	now := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, reg := range regs {
		g.Go(func() error {
			owned[i] = s.ownedTicket(gctx, viewer, reg, now)
			return nil
		})
	}
	_ = g.Wait()
	return owned, nil
}

func (s *CatalogServiceImpl) ownedTicket(ctx context.Context, viewer common.Address, reg model.Registration, now time.Time) model.OwnedTicket {
	out := model.OwnedTicket{TicketID: reg.TicketID, TokenID: reg.TokenID}

	ticket, err := s.tickets.FindByID(ctx, reg.TicketID)
	if err != nil {
		metrics.TrackDegradedLookup("owned_ticket")
		s.log.Warn("owned ticket lookup failed", zap.Int64("ticket_id", reg.TicketID), zap.Error(err))
	} else {
		res := s.engine.DeriveDetail(ticket, &viewer, status.RegistrationYes, now)
		view := catalog.NewEventView(ticket, res)
		out.Event = &view
		out.Status = res.Status
	}

	if hash, ok := s.purchaseHash(ctx, viewer, reg); ok {
		out.Hash = hash
		out.HashAvailable = true
	}
	return out
}

// purchaseHash 先查交易紀錄，再查鏈上 log；都找不到就回報不可用
func (s *CatalogServiceImpl) purchaseHash(ctx context.Context, viewer common.Address, reg model.Registration) (string, bool) {
	if s.activities != nil {
		hash, err := s.activities.FindHash(ctx, viewer.Hex(), model.TxActionBuyTicket, reg.TicketID)
		if err == nil {
			return hash, true
		}
		if !errors.Is(err, apperrors.ErrHashUnavailable) {
			s.log.Warn("activity hash lookup failed", zap.Int64("ticket_id", reg.TicketID), zap.Error(err))
		}
	}

	if reg.TxHash != (common.Hash{}) {
		return reg.TxHash.Hex(), true
	}
	hash, err := s.tickets.PurchaseHash(ctx, reg.TicketID, viewer)
	if err != nil {
		metrics.TrackDegradedLookup("purchase_hash")
		if !errors.Is(err, apperrors.ErrHashUnavailable) {
			s.log.Warn("purchase hash lookup failed", zap.Int64("ticket_id", reg.TicketID), zap.Error(err))
		}
		return "", false
	}
	return hash, true
}

func (s *CatalogServiceImpl) GetListing(ctx context.Context, tokenID int64) (*model.ListingView, error) {
	listing, err := s.tickets.FindListing(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	view := &model.ListingView{
		Listing:     listing,
		PriceNative: listing.PriceNative(),
	}

	// 原活動讀不到時仍回傳掛單，只是沒有加價比較
	ticket, err := s.tickets.FindByID(ctx, listing.TicketID)
	if err != nil {
		metrics.TrackDegradedLookup("listing_event")
		s.log.Warn("listing event lookup failed",
			zap.Int64("token_id", tokenID),
			zap.Int64("ticket_id", listing.TicketID),
			zap.Error(err),
		)
		return view, nil
	}
	res := s.engine.Derive(status.Input{Ticket: ticket, Listing: listing, Now: s.now(), Variant: status.VariantList})
	ev := catalog.NewEventView(ticket, res)
	view.Event = &ev
	if res.HasMarkup {
		markup := res.MarkupPercent
		view.MarkupPercent = &markup
	}
	return view, nil
}

func (s *CatalogServiceImpl) Activity(ctx context.Context, wallet common.Address, limit int) ([]*model.Activity, error) {
	return s.activities.ListByWallet(ctx, wallet.Hex(), limit)
}
