package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/queue"
	"nft-ticket-marketplace/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeActivityRepo 依序回傳 errs，用完後成功
type fakeActivityRepo struct {
	repository.ActivityRepository
	mu      sync.Mutex
	errs    []error
	calls   int
	created []*model.Activity
}

func (f *fakeActivityRepo) Create(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeActivityRepo) snapshot() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, len(f.created)
}

func activity() *model.Activity {
	return &model.Activity{
		OperationID: uuid.New(),
		Wallet:      "0xa000000000000000000000000000000000000001",
		Action:      model.TxActionBuyTicket,
		Outcome:     model.TxPhaseSettled,
	}
}

func TestActivityWorker(t *testing.T) {
	tests := []struct {
		name        string
		errs        []error
		wantCalls   int
		wantCreated int
	}{
		{name: "Persisted", wantCalls: 1, wantCreated: 1},
		{name: "TransientErrorRetried", errs: []error{errors.New("dial tcp: connection refused")}, wantCalls: 2, wantCreated: 1},
		{name: "ConstraintViolationDropped", errs: []error{&pgconn.PgError{Code: "23502"}}, wantCalls: 1, wantCreated: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			q := queue.NewMemoryActivityQueue(10)
			repo := &fakeActivityRepo{errs: tt.errs}
			require.NoError(t, NewActivityWorker(repo, q).Start(ctx))
			require.NoError(t, q.Publish(ctx, activity()))

			assert.Eventually(t, func() bool {
				calls, created := repo.snapshot()
				return calls == tt.wantCalls && created == tt.wantCreated
			}, time.Second, 10*time.Millisecond)

			// 確認沒有多餘的重送
			time.Sleep(50 * time.Millisecond)
			calls, created := repo.snapshot()
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCreated, created)
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.True(t, permanent(&pgconn.PgError{Code: "22001"}))
	assert.True(t, permanent(&pgconn.PgError{Code: "23505"}))
	assert.False(t, permanent(&pgconn.PgError{Code: "57P01"}))
	assert.False(t, permanent(errors.New("timeout")))
}

type fakeTicketRepo struct {
	repository.TicketRepository
	refreshes atomic.Int32
	err       error
}

func (f *fakeTicketRepo) Refresh(ctx context.Context) ([]*model.Ticket, error) {
	f.refreshes.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Ticket{{ID: 1, Creator: common.HexToAddress("0x01")}}, nil
}

func TestCatalogRefresher(t *testing.T) {
	_, err := NewCatalogRefresher(&fakeTicketRepo{}, 0)
	assert.Error(t, err)

	repo := &fakeTicketRepo{}
	r, err := NewCatalogRefresher(repo, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	assert.Eventually(t, func() bool { return repo.refreshes.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}

func TestCatalogRefresher_KeepsRunningAfterFailure(t *testing.T) {
	repo := &fakeTicketRepo{err: errors.New("rpc unavailable")}
	r, err := NewCatalogRefresher(repo, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	assert.Eventually(t, func() bool { return repo.refreshes.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}
