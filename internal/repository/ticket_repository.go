package repository

import (
	"context"
	"errors"
	"math/big"

	"nft-ticket-marketplace/internal/cache"
	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/metrics"
	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// TicketRepository 鏈上活動資料（合約為唯一資料來源），redis 只做 cache-aside
type TicketRepository interface {
	List(ctx context.Context) ([]*model.Ticket, error)
	FindByID(ctx context.Context, id int64) (*model.Ticket, error)
	IsRegistered(ctx context.Context, id int64, wallet common.Address) (bool, error)
	FindListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error)
	// 以 TicketRegistered log 找出錢包持有的票
	FindRegistrations(ctx context.Context, wallet common.Address) ([]model.Registration, error)
	// 該錢包購買此活動票券的交易 hash，找不到時回 apperrors.ErrHashUnavailable
	PurchaseHash(ctx context.Context, ticketID int64, wallet common.Address) (string, error)
	Invalidate(ctx context.Context, ticketID int64, wallets ...common.Address) error
	InvalidateListing(ctx context.Context, tokenID int64) error
	InvalidateRecent(ctx context.Context) error
	// Refresh 略過快取直接讀鏈並回寫
	Refresh(ctx context.Context) ([]*model.Ticket, error)
}

type TicketRepositoryImpl struct {
	client    chain.Client
	contracts chain.Contracts
	cache     cache.TicketCache
	lookback  uint64
	log       *zap.Logger
}

func NewTicketRepository(client chain.Client, contracts chain.Contracts, cache cache.TicketCache, lookback uint64, log *zap.Logger) TicketRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketRepositoryImpl{
		client:    client,
		contracts: contracts,
		cache:     cache,
		lookback:  lookback,
		log:       log,
	}
}

func (r *TicketRepositoryImpl) List(ctx context.Context) ([]*model.Ticket, error) {
	tickets, err := r.cache.GetRecent(ctx)
	if err == nil {
		return tickets, nil
	}
	r.logCacheError("recent", err)
	return r.Refresh(ctx)
}

func (r *TicketRepositoryImpl) Refresh(ctx context.Context) ([]*model.Ticket, error) {
	values, err := r.client.Read(ctx, r.contracts.Ticket, chain.MethodGetRecentTickets)
	if err != nil {
		return nil, err
	}
	tickets, err := chain.DecodeTickets(values)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetRecent(ctx, tickets); err != nil {
		r.log.Warn("failed to cache recent tickets", zap.Error(err))
	}
	return tickets, nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Ticket, error) {
	ticket, err := r.cache.GetTicket(ctx, id)
	if err == nil {
		return ticket, nil
	}
	r.logCacheError("ticket", err)

	values, err := r.client.Read(ctx, r.contracts.Ticket, chain.MethodTickets, big.NewInt(id))
	if err != nil {
		return nil, err
	}
	ticket, err = chain.DecodeTicket(values)
	if err != nil {
		return nil, err
	}
	// mapping 不存在的 key 會回傳零值 struct
	if ticket.ID == 0 && ticket.Creator == (common.Address{}) {
		return nil, apperrors.ErrTicketNotFound
	}

	if err := r.cache.SetTicket(ctx, ticket); err != nil {
		r.log.Warn("failed to cache ticket", zap.Int64("ticket_id", id), zap.Error(err))
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) IsRegistered(ctx context.Context, id int64, wallet common.Address) (bool, error) {
	registered, err := r.cache.GetRegistered(ctx, id, wallet)
	if err == nil {
		return registered, nil
	}
	r.logCacheError("registered", err)

	values, err := r.client.Read(ctx, r.contracts.Ticket, chain.MethodIsRegistered, big.NewInt(id), wallet)
	if err != nil {
		return false, err
	}
	registered, err = chain.DecodeBool(values)
	if err != nil {
		return false, err
	}

	if err := r.cache.SetRegistered(ctx, id, wallet, registered); err != nil {
		r.log.Warn("failed to cache registration", zap.Int64("ticket_id", id), zap.Error(err))
	}
	return registered, nil
}

func (r *TicketRepositoryImpl) FindListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error) {
	listing, err := r.cache.GetListing(ctx, tokenID)
	if err == nil {
		return listing, nil
	}
	r.logCacheError("listing", err)

	values, err := r.client.Read(ctx, r.contracts.Market, chain.MethodGetListing, big.NewInt(tokenID))
	if err != nil {
		return nil, err
	}
	listing, err = chain.DecodeListing(values)
	if err != nil {
		return nil, err
	}
	if listing.Seller == (common.Address{}) {
		return nil, apperrors.ErrListingNotFound
	}

	if err := r.cache.SetListing(ctx, listing); err != nil {
		r.log.Warn("failed to cache listing", zap.Int64("token_id", tokenID), zap.Error(err))
	}
	return listing, nil
}

func (r *TicketRepositoryImpl) FindRegistrations(ctx context.Context, wallet common.Address) ([]model.Registration, error) {
	regs, err := r.cache.GetRegistrations(ctx, wallet)
	if err == nil {
		return regs, nil
	}
	r.logCacheError("registrations", err)

	regs, err = r.registrationLogs(ctx, nil, wallet)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetRegistrations(ctx, wallet, regs); err != nil {
		r.log.Warn("failed to cache registrations", zap.String("wallet", wallet.Hex()), zap.Error(err))
	}
	return regs, nil
}

func (r *TicketRepositoryImpl) PurchaseHash(ctx context.Context, ticketID int64, wallet common.Address) (string, error) {
	regs, err := r.registrationLogs(ctx, []any{big.NewInt(ticketID)}, wallet)
	if err != nil {
		return "", err
	}
	if len(regs) == 0 {
		return "", apperrors.ErrHashUnavailable
	}
	// log 依區塊排序，取最後一筆
	return regs[len(regs)-1].TxHash.Hex(), nil
}

func (r *TicketRepositoryImpl) registrationLogs(ctx context.Context, ticketTopic []any, wallet common.Address) ([]model.Registration, error) {
	from, err := r.fromBlock(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := r.client.GetLogs(ctx, r.contracts.Ticket, chain.EventTicketRegistered, from, nil, ticketTopic, []any{wallet})
	if err != nil {
		return nil, err
	}

	regs := make([]model.Registration, 0, len(logs))
	for _, l := range logs {
		reg, err := chain.DecodeRegistration(l)
		if err != nil {
			metrics.TrackIntegrityWarning()
			r.log.Warn("skipping malformed registration log", zap.String("tx", l.TxHash.Hex()), zap.Error(err))
			continue
		}
		regs = append(regs, *reg)
	}
	return regs, nil
}

// fromBlock lookback 為 0 時從創世區塊開始查
func (r *TicketRepositoryImpl) fromBlock(ctx context.Context) (*big.Int, error) {
	if r.lookback == 0 {
		return big.NewInt(0), nil
	}
	latest, err := r.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if latest <= r.lookback {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetUint64(latest - r.lookback), nil
}

func (r *TicketRepositoryImpl) Invalidate(ctx context.Context, ticketID int64, wallets ...common.Address) error {
	return r.cache.Invalidate(ctx, ticketID, wallets...)
}

func (r *TicketRepositoryImpl) InvalidateListing(ctx context.Context, tokenID int64) error {
	return r.cache.InvalidateListing(ctx, tokenID)
}

func (r *TicketRepositoryImpl) InvalidateRecent(ctx context.Context) error {
	return r.cache.InvalidateRecent(ctx)
}

func (r *TicketRepositoryImpl) logCacheError(entry string, err error) {
	if errors.Is(err, apperrors.ErrCacheMiss) {
		return
	}
	r.log.Warn("cache read failed, falling back to chain", zap.String("entry", entry), zap.Error(err))
}
