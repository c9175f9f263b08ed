package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/queue"
	"nft-ticket-marketplace/internal/repository"
	"nft-ticket-marketplace/internal/status"
	"nft-ticket-marketplace/internal/txlifecycle"
	"nft-ticket-marketplace/internal/wallet"
	apperrors "nft-ticket-marketplace/pkg/app_errors"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// CreateEventParams createTicket 的參數，價格單位為 wei
type CreateEventParams struct {
	Name           string
	Description    string
	Location       string
	Metadata       string
	Price          *big.Int
	EventTimestamp int64
	MaxSupply      int64
}

// TxService 所有寫入都經過 TxLifecycle；回傳的是送出當下的狀態，後續變化透過 Subscribe 取得
type TxService interface {
	CreateEvent(ctx context.Context, p CreateEventParams) (model.TxState, error)
	BuyTicket(ctx context.Context, ticketID int64) (model.TxState, error)
	CancelEvent(ctx context.Context, ticketID int64) (model.TxState, error)
	CloseEvent(ctx context.Context, ticketID int64) (model.TxState, error)
	ClaimRefund(ctx context.Context, ticketID int64) (model.TxState, error)
	WithdrawProceeds(ctx context.Context, ticketID int64) (model.TxState, error)
	ListForResale(ctx context.Context, tokenID int64, price *big.Int) (model.TxState, error)
	BuyResale(ctx context.Context, tokenID int64) (model.TxState, error)
	CancelListing(ctx context.Context, tokenID int64) (model.TxState, error)
	Transfer(ctx context.Context, tokenID int64, to common.Address) (model.TxState, error)

	State(slot string) (model.TxState, error)
	Pending() []model.TxState
	Dismiss(slot string) error
	Subscribe(slot string) (<-chan model.TxState, func(), error)
}

type TxServiceImpl struct {
	client     chain.Client
	contracts  chain.Contracts
	session    *wallet.Session
	tickets    repository.TicketRepository
	activities queue.ActivityQueue
	engine     *status.Engine
	now        func() time.Time
	log        *zap.Logger
}

func NewTxService(
	client chain.Client,
	contracts chain.Contracts,
	session *wallet.Session,
	tickets repository.TicketRepository,
	activities queue.ActivityQueue,
	engine *status.Engine,
	now func() time.Time,
) TxService {
	if now == nil {
		now = time.Now
	}
	return &TxServiceImpl{
		client:     client,
		contracts:  contracts,
		session:    session,
		tickets:    tickets,
		activities: activities,
		engine:     engine,
		now:        now,
		log:        logger.WithComponent("service"),
	}
}

// op 一次寫入所需的資訊
type op struct {
	action     model.TxAction
	slot       string
	contract   common.Address
	method     string
	value      *big.Int
	args       []any
	ticketID   *int64
	tokenID    *int64
	invalidate func(ctx context.Context) error
}

func (s *TxServiceImpl) CreateEvent(ctx context.Context, p CreateEventParams) (model.TxState, error) {
	return s.submit(op{
		action:   model.TxActionCreateEvent,
		slot:     txlifecycle.SlotKey(model.TxActionCreateEvent),
		contract: s.contracts.Ticket,
		method:   chain.MethodCreateTicket,
		args: []any{
			p.Price,
			p.Name,
			p.Description,
			big.NewInt(p.EventTimestamp),
			big.NewInt(p.MaxSupply),
			p.Metadata,
			p.Location,
		},
		invalidate: s.tickets.InvalidateRecent,
	})
}

func (s *TxServiceImpl) BuyTicket(ctx context.Context, ticketID int64) (model.TxState, error) {
	if !s.session.Connected() {
		return model.TxState{}, apperrors.ErrWalletNotConnected
	}
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return model.TxState{}, err
	}

	// 查不到登記狀態時交給合約判斷
	reg := status.RegistrationUnknown
	if ok, err := s.tickets.IsRegistered(ctx, ticketID, s.session.Address); err == nil {
		reg = status.RegistrationFromBool(ok)
	} else {
		s.log.Warn("registration lookup failed before purchase", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
	res := s.engine.DeriveDetail(ticket, s.session.Viewer(), reg, s.now())
	if !res.Status.Purchasable() {
		return model.TxState{}, fmt.Errorf("%w: event is %s", apperrors.ErrTicketUnavailable, res.Status)
	}

	return s.submit(op{
		action:     model.TxActionBuyTicket,
		slot:       txlifecycle.SlotKey(model.TxActionBuyTicket, ticketID),
		contract:   s.contracts.Ticket,
		method:     chain.MethodRegister,
		value:      ticket.Price,
		args:       []any{big.NewInt(ticketID)},
		ticketID:   &ticketID,
		invalidate: s.invalidateTicket(ticketID, true),
	})
}

func (s *TxServiceImpl) CancelEvent(ctx context.Context, ticketID int64) (model.TxState, error) {
	return s.ticketOp(model.TxActionCancelEvent, chain.MethodCancelTicket, ticketID, false)
}

func (s *TxServiceImpl) CloseEvent(ctx context.Context, ticketID int64) (model.TxState, error) {
	return s.ticketOp(model.TxActionCloseEvent, chain.MethodCloseTicket, ticketID, false)
}

func (s *TxServiceImpl) ClaimRefund(ctx context.Context, ticketID int64) (model.TxState, error) {
	return s.ticketOp(model.TxActionClaimRefund, chain.MethodClaimRefund, ticketID, true)
}

func (s *TxServiceImpl) WithdrawProceeds(ctx context.Context, ticketID int64) (model.TxState, error) {
	return s.ticketOp(model.TxActionWithdrawProceeds, chain.MethodWithdrawProceeds, ticketID, false)
}

func (s *TxServiceImpl) ticketOp(action model.TxAction, method string, ticketID int64, withWallet bool) (model.TxState, error) {
	return s.submit(op{
		action:     action,
		slot:       txlifecycle.SlotKey(action, ticketID),
		contract:   s.contracts.Ticket,
		method:     method,
		args:       []any{big.NewInt(ticketID)},
		ticketID:   &ticketID,
		invalidate: s.invalidateTicket(ticketID, withWallet),
	})
}

func (s *TxServiceImpl) ListForResale(ctx context.Context, tokenID int64, price *big.Int) (model.TxState, error) {
	if price == nil || price.Sign() <= 0 {
		return model.TxState{}, fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
	}
	return s.listingOp(model.TxActionListForResale, chain.MethodListTicket, tokenID, nil, big.NewInt(tokenID), price)
}

func (s *TxServiceImpl) BuyResale(ctx context.Context, tokenID int64) (model.TxState, error) {
	if !s.session.Connected() {
		return model.TxState{}, apperrors.ErrWalletNotConnected
	}
	listing, err := s.tickets.FindListing(ctx, tokenID)
	if err != nil {
		return model.TxState{}, err
	}
	if !listing.Active {
		return model.TxState{}, apperrors.ErrListingInactive
	}
	return s.listingOp(model.TxActionBuyResale, chain.MethodBuyTicket, tokenID, listing.Price, big.NewInt(tokenID))
}

func (s *TxServiceImpl) CancelListing(ctx context.Context, tokenID int64) (model.TxState, error) {
	return s.listingOp(model.TxActionCancelListing, chain.MethodCancelListing, tokenID, nil, big.NewInt(tokenID))
}

func (s *TxServiceImpl) listingOp(action model.TxAction, method string, tokenID int64, value *big.Int, args ...any) (model.TxState, error) {
	return s.submit(op{
		action:   action,
		slot:     txlifecycle.SlotKey(action, tokenID),
		contract: s.contracts.Market,
		method:   method,
		value:    value,
		args:     args,
		tokenID:  &tokenID,
		invalidate: func(ctx context.Context) error {
			return s.tickets.InvalidateListing(ctx, tokenID)
		},
	})
}

func (s *TxServiceImpl) Transfer(ctx context.Context, tokenID int64, to common.Address) (model.TxState, error) {
	if to == (common.Address{}) {
		return model.TxState{}, fmt.Errorf("%w: recipient is the zero address", apperrors.ErrInvalidInput)
	}
	if to == s.session.Address {
		return model.TxState{}, fmt.Errorf("%w: cannot transfer to yourself", apperrors.ErrInvalidInput)
	}
	return s.submit(op{
		action:   model.TxActionTransfer,
		slot:     txlifecycle.SlotKey(model.TxActionTransfer, tokenID),
		contract: s.contracts.Ticket,
		method:   chain.MethodSafeTransferFrom,
		args:     []any{s.session.Address, to, big.NewInt(tokenID)},
		tokenID:  &tokenID,
		// 轉出的票若有掛單會失效
		invalidate: func(ctx context.Context) error {
			return s.tickets.InvalidateListing(ctx, tokenID)
		},
	})
}

// invalidateTicket withWallet 時一併清除目前錢包的購票紀錄
func (s *TxServiceImpl) invalidateTicket(ticketID int64, withWallet bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if withWallet {
			return s.tickets.Invalidate(ctx, ticketID, s.session.Address)
		}
		return s.tickets.Invalidate(ctx, ticketID)
	}
}

func (s *TxServiceImpl) submit(o op) (model.TxState, error) {
	if !s.session.Connected() {
		return model.TxState{}, apperrors.ErrWalletNotConnected
	}
	tracker, err := s.session.Trackers.Slot(o.slot)
	if err != nil {
		return model.TxState{}, err
	}

	write := func(ctx context.Context, prompt func()) (common.Hash, error) {
		return s.client.Write(ctx, o.contract, o.method, o.value, prompt, o.args...)
	}
	cb := txlifecycle.Callbacks{
		// settled 發佈前先清快取，訂閱者收到 settled 後重新讀取會拿到新資料
		OnSettled: func(ctx context.Context, st model.TxState) {
			if o.invalidate != nil {
				if err := o.invalidate(ctx); err != nil {
					s.log.Warn("cache invalidation failed",
						zap.String("slot", st.Slot),
						zap.String("action", string(st.Action)),
						zap.Error(err),
					)
				}
			}
			s.record(ctx, o, st)
		},
		OnFailed: func(st model.TxState) {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			s.record(ctx, o, st)
		},
	}
	return tracker.Submit(o.action, write, cb)
}

// record 寫入交易紀錄佇列，失敗只記 log，不影響交易結果
func (s *TxServiceImpl) record(ctx context.Context, o op, st model.TxState) {
	activity := &model.Activity{
		OperationID: st.OperationID,
		Wallet:      s.session.Address.Hex(),
		Action:      st.Action,
		TicketID:    o.ticketID,
		TokenID:     o.tokenID,
		Hash:        st.Hash,
		Outcome:     st.Phase,
	}
	if st.Error != nil {
		kind := string(st.Error.Kind)
		activity.ErrorKind = &kind
	}
	if err := s.activities.Publish(ctx, activity); err != nil {
		s.log.Error("failed to publish activity",
			zap.String("operation_id", st.OperationID.String()),
			zap.String("action", string(st.Action)),
			zap.Error(err),
		)
	}
}

func (s *TxServiceImpl) tracker(slot string) (*txlifecycle.Tracker, error) {
	t, ok := s.session.Trackers.Get(slot)
	if !ok {
		return nil, apperrors.ErrSlotNotFound
	}
	return t, nil
}

func (s *TxServiceImpl) State(slot string) (model.TxState, error) {
	t, err := s.tracker(slot)
	if err != nil {
		return model.TxState{}, err
	}
	return t.State(), nil
}

func (s *TxServiceImpl) Pending() []model.TxState {
	return s.session.Trackers.Snapshot()
}

// Dismiss 關閉結果提示，slot 回到 idle
func (s *TxServiceImpl) Dismiss(slot string) error {
	t, err := s.tracker(slot)
	if err != nil {
		return err
	}
	return t.Reset()
}

func (s *TxServiceImpl) Subscribe(slot string) (<-chan model.TxState, func(), error) {
	t, err := s.tracker(slot)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := t.Subscribe()
	return ch, unsubscribe, nil
}
