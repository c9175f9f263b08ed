package txlifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nft-ticket-marketplace/internal/metrics"
	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const subscriberBuffer = 16

// WriteFunc 執行一次合約寫入；要求錢包簽章前必須呼叫 prompt
type WriteFunc func(ctx context.Context, prompt func()) (common.Hash, error)

type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Callbacks 具名的轉換 callback。OnSettled 在 settled 狀態發布之前執行（先 invalidate 再讓訂閱者重新讀取）
type Callbacks struct {
	OnSubmitting func(state model.TxState)
	OnSettled    func(ctx context.Context, state model.TxState)
	OnFailed     func(state model.TxState)
}

type Tracker struct {
	slot   string
	waiter ReceiptWaiter
	log    *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   model.TxState
	started time.Time
	done    chan struct{}
	subs    map[int]chan model.TxState
	nextSub int
	closed  bool
}

func newTracker(parent context.Context, slot string, waiter ReceiptWaiter, log *zap.Logger, now func() time.Time) *Tracker {
	ctx, cancel := context.WithCancel(parent)
	return &Tracker{
		slot:   slot,
		waiter: waiter,
		log:    log.With(zap.String("slot", slot)),
		now:    now,
		ctx:    ctx,
		cancel: cancel,
		state:  model.TxState{Slot: slot, Phase: model.TxPhaseIdle, UpdatedAt: now()},
		subs:   make(map[int]chan model.TxState),
	}
}

func (t *Tracker) Slot() string {
	return t.slot
}

// State 目前狀態快照
func (t *Tracker) State() model.TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Submit 開始新的操作。in-flight 時直接拒絕，不排隊
func (t *Tracker) Submit(action model.TxAction, write WriteFunc, cb Callbacks) (model.TxState, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return model.TxState{}, apperrors.ErrTrackerClosed
	}
	if !t.state.Phase.AcceptsSubmit() {
		current := t.state
		t.mu.Unlock()
		return current, apperrors.ErrOperationInFlight
	}

	opID := uuid.New()
	done := make(chan struct{})
	t.started = t.now()
	t.done = done
	t.state = model.TxState{
		OperationID: opID,
		Slot:        t.slot,
		Action:      action,
		Phase:       model.TxPhaseSubmitting,
		UpdatedAt:   t.started,
	}
	snapshot := t.state
	t.publishLocked()
	t.mu.Unlock()

	metrics.TrackTransition(string(action), string(model.TxPhaseSubmitting))
	t.log.Info("operation submitted", zap.String("action", string(action)), zap.String("operation_id", opID.String()))
	if cb.OnSubmitting != nil {
		cb.OnSubmitting(snapshot)
	}

	go t.run(opID, action, write, cb, done)
	return snapshot, nil
}

func (t *Tracker) run(opID uuid.UUID, action model.TxAction, write WriteFunc, cb Callbacks, done chan struct{}) {
	defer close(done)

	hash, err := write(t.ctx, func() {
		t.advance(opID, model.TxPhaseAwaitingWalletConfirmation, nil)
	})
	if err != nil {
		t.fail(opID, err, cb)
		return
	}

	hex := hash.Hex()
	if _, ok := t.advance(opID, model.TxPhaseAwaitingChainConfirmation, func(s *model.TxState) { s.Hash = &hex }); !ok {
		return
	}

	receipt, err := t.waiter.WaitForReceipt(t.ctx, hash)
	if err != nil {
		t.fail(opID, err, cb)
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.fail(opID, fmt.Errorf("transaction %s: %w", hex, apperrors.ErrReceiptReverted), cb)
		return
	}

	if cb.OnSettled != nil {
		pending, ok := t.preview(opID, model.TxPhaseSettled)
		if !ok {
			return
		}
		cb.OnSettled(t.ctx, pending)
	}
	t.advance(opID, model.TxPhaseSettled, func(s *model.TxState) { s.Notice = action.SuccessNotice() })
}

func (t *Tracker) fail(opID uuid.UUID, cause error, cb Callbacks) {
	if errors.Is(cause, context.Canceled) && t.isClosed() {
		return
	}
	kind := apperrors.Classify(cause)
	state, ok := t.advance(opID, model.TxPhaseFailed, func(s *model.TxState) {
		s.Error = &model.TxFailure{Kind: kind, Message: apperrors.UserMessage(kind, cause)}
	})
	if !ok {
		return
	}
	metrics.TrackFailure(string(state.Action), string(kind))
	t.log.Warn("operation failed",
		zap.String("action", string(state.Action)),
		zap.String("operation_id", opID.String()),
		zap.String("kind", string(kind)),
		zap.Error(cause),
	)
	if cb.OnFailed != nil {
		cb.OnFailed(state)
	}
}

// preview 回傳套用轉換後的狀態但不發布
func (t *Tracker) preview(opID uuid.UUID, target model.TxPhase) (model.TxState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.state.OperationID != opID || !t.state.Phase.CanTransitionTo(target) {
		return model.TxState{}, false
	}
	s := t.state
	s.Phase = target
	return s, true
}

// advance 轉換並通知訂閱者；tracker 已關閉或操作已被取代時丟棄
func (t *Tracker) advance(opID uuid.UUID, target model.TxPhase, mutate func(*model.TxState)) (model.TxState, bool) {
	t.mu.Lock()
	if t.closed || t.state.OperationID != opID {
		t.mu.Unlock()
		return model.TxState{}, false
	}
	if !t.state.Phase.CanTransitionTo(target) {
		from := t.state.Phase
		t.mu.Unlock()
		t.log.Debug("ignored transition", zap.String("from", string(from)), zap.String("to", string(target)))
		return model.TxState{}, false
	}
	t.state.Phase = target
	t.state.UpdatedAt = t.now()
	if mutate != nil {
		mutate(&t.state)
	}
	snapshot := t.state
	elapsed := snapshot.UpdatedAt.Sub(t.started)
	t.publishLocked()
	t.mu.Unlock()

	metrics.TrackTransition(string(snapshot.Action), string(target))
	if target.IsTerminal() {
		metrics.ObserveSettle(string(snapshot.Action), string(target), elapsed.Seconds())
	}
	return snapshot, true
}

// Reset 使用者關閉提示：只允許從 settled / failed 回到 idle
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return apperrors.ErrTrackerClosed
	}
	if t.state.Phase == model.TxPhaseIdle {
		return nil
	}
	if !t.state.Phase.CanTransitionTo(model.TxPhaseIdle) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, t.state.Phase, model.TxPhaseIdle)
	}
	t.state = model.TxState{Slot: t.slot, Phase: model.TxPhaseIdle, UpdatedAt: t.now()}
	t.done = nil
	t.publishLocked()
	return nil
}

// Subscribe 訂閱狀態變化，第一筆為目前狀態。取消訂閱可在任何時間點呼叫
func (t *Tracker) Subscribe() (<-chan model.TxState, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan model.TxState, subscriberBuffer)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	ch <- t.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if sub, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(sub)
			}
		})
	}
}

// Wait 等待目前的操作結束；沒有進行中的操作時立即回傳
func (t *Tracker) Wait(ctx context.Context) (model.TxState, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return t.State(), nil
	}
	select {
	case <-done:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

// Close 卸載：取消進行中的等待並關閉所有訂閱，之後的轉換都會被丟棄
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.cancel()
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// publishLocked buffer 滿時丟掉最舊的一筆，最新狀態（包含 settled / failed）一定送達。
// 只有持有 t.mu 的 publisher 會寫入 channel，騰出一格後 send 不會阻塞
func (t *Tracker) publishLocked() {
	for _, ch := range t.subs {
		select {
		case ch <- t.state:
			continue
		default:
		}
		select {
		case dropped := <-ch:
			t.log.Warn("subscriber too slow, dropping oldest state",
				zap.String("dropped_phase", string(dropped.Phase)),
				zap.String("phase", string(t.state.Phase)),
			)
		default:
		}
		ch <- t.state
	}
}
