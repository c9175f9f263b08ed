package txlifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"go.uber.org/zap"
)

// Registry 每個 slot 一個 tracker，slot 由呼叫端決定（例如 buy_ticket:12）
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	waiter ReceiptWaiter
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	trackers map[string]*Tracker
	closed   bool
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(ctx context.Context, waiter ReceiptWaiter, log *zap.Logger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Registry{
		ctx:      ctx,
		cancel:   cancel,
		waiter:   waiter,
		log:      log,
		now:      time.Now,
		trackers: make(map[string]*Tracker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SlotKey 例如 buy_ticket:12；不針對特定實體的操作（create_event）不帶 id
func SlotKey(action model.TxAction, id ...int64) string {
	key := string(action)
	for _, v := range id {
		key += fmt.Sprintf(":%d", v)
	}
	return key
}

// Slot 取得或建立 tracker
func (r *Registry) Slot(key string) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, apperrors.ErrTrackerClosed
	}
	if t, ok := r.trackers[key]; ok {
		return t, nil
	}
	t := newTracker(r.ctx, key, r.waiter, r.log, r.now)
	r.trackers[key] = t
	return t, nil
}

func (r *Registry) Get(key string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[key]
	return t, ok
}

// Snapshot 所有非 idle 的 slot，依 slot 排序
func (r *Registry) Snapshot() []model.TxState {
	r.mu.Lock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.Unlock()

	states := make([]model.TxState, 0, len(trackers))
	for _, t := range trackers {
		if s := t.State(); s.Phase != model.TxPhaseIdle {
			states = append(states, s)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Slot < states[j].Slot })
	return states
}

func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	trackers := r.trackers
	r.trackers = make(map[string]*Tracker)
	r.mu.Unlock()

	r.cancel()
	for _, t := range trackers {
		t.Close()
	}
}
