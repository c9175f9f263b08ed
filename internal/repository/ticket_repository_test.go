package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/chain/chaintest"
	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contracts = chain.Contracts{
		Ticket: common.HexToAddress("0x4000000000000000000000000000000000000004"),
		Market: common.HexToAddress("0x5000000000000000000000000000000000000005"),
	}
	alice   = common.HexToAddress("0xa000000000000000000000000000000000000001")
	bob     = common.HexToAddress("0xb000000000000000000000000000000000000002")
	creator = common.HexToAddress("0xc000000000000000000000000000000000000003")
)

// memCache 只用於測試的 TicketCache
type memCache struct {
	mu         sync.Mutex
	recent     []*model.Ticket
	tickets    map[int64]*model.Ticket
	registered map[string]bool
	regs       map[common.Address][]model.Registration
	listings   map[int64]*model.ResaleListing
	failReads  bool
}

func newMemCache() *memCache {
	return &memCache{
		tickets:    map[int64]*model.Ticket{},
		registered: map[string]bool{},
		regs:       map[common.Address][]model.Registration{},
		listings:   map[int64]*model.ResaleListing{},
	}
}

func regKey(id int64, w common.Address) string {
	return fmt.Sprintf("%d|%s", id, w.Hex())
}

func (c *memCache) miss() error {
	if c.failReads {
		return errors.New("redis: connection refused")
	}
	return apperrors.ErrCacheMiss
}

func (c *memCache) GetRecent(ctx context.Context) ([]*model.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recent == nil {
		return nil, c.miss()
	}
	return c.recent, nil
}

func (c *memCache) SetRecent(ctx context.Context, tickets []*model.Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = tickets
	return nil
}

func (c *memCache) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tickets[id]
	if !ok {
		return nil, c.miss()
	}
	return t, nil
}

func (c *memCache) SetTicket(ctx context.Context, t *model.Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickets[t.ID] = t
	return nil
}

func (c *memCache) GetRegistered(ctx context.Context, id int64, w common.Address) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.registered[regKey(id, w)]
	if !ok {
		return false, c.miss()
	}
	return v, nil
}

func (c *memCache) SetRegistered(ctx context.Context, id int64, w common.Address, v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered[regKey(id, w)] = v
	return nil
}

func (c *memCache) GetRegistrations(ctx context.Context, w common.Address) ([]model.Registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	regs, ok := c.regs[w]
	if !ok {
		return nil, c.miss()
	}
	return regs, nil
}

func (c *memCache) SetRegistrations(ctx context.Context, w common.Address, regs []model.Registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[w] = regs
	return nil
}

func (c *memCache) GetListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[tokenID]
	if !ok {
		return nil, c.miss()
	}
	return l, nil
}

func (c *memCache) SetListing(ctx context.Context, l *model.ResaleListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[l.TokenID] = l
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, id int64, wallets ...common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = nil
	delete(c.tickets, id)
	for k := range c.registered {
		if strings.HasPrefix(k, fmt.Sprintf("%d|", id)) {
			delete(c.registered, k)
		}
	}
	for _, w := range wallets {
		delete(c.regs, w)
	}
	return nil
}

func (c *memCache) InvalidateListing(ctx context.Context, tokenID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, tokenID)
	return nil
}

func (c *memCache) InvalidateRecent(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = nil
	return nil
}

func ticket(id, sold int64) *model.Ticket {
	return &model.Ticket{
		ID:             id,
		Creator:        creator,
		Price:          big.NewInt(1e17),
		EventName:      "Event",
		EventTimestamp: 1767225600,
		MaxSupply:      100,
		Sold:           sold,
	}
}

func setupTicketRepo(lookback uint64) (TicketRepository, *chaintest.FakeClient, *memCache) {
	client := chaintest.NewFakeClient()
	c := newMemCache()
	return NewTicketRepository(client, contracts, c, lookback, nil), client, c
}

func TestTicketRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("CacheAside", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			require.Equal(t, chain.MethodGetRecentTickets, method)
			return chaintest.RecentValues(ticket(1, 5), ticket(2, 80)), nil
		}

		first, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, first, 2)
		second, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, client.ReadCount(chain.MethodGetRecentTickets))
	})

	t.Run("CacheDownFallsBackToChain", func(t *testing.T) {
		repo, client, c := setupTicketRepo(0)
		c.failReads = true
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return chaintest.RecentValues(ticket(1, 5)), nil
		}

		tickets, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, tickets, 1)
	})

	t.Run("ChainError", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return nil, errors.New("dial tcp: connection refused")
		}

		_, err := repo.List(ctx)
		assert.Error(t, err)
	})

	t.Run("RefreshBypassesCache", func(t *testing.T) {
		repo, client, c := setupTicketRepo(0)
		require.NoError(t, c.SetRecent(ctx, []*model.Ticket{ticket(9, 0)}))
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return chaintest.RecentValues(ticket(1, 5), ticket(2, 6)), nil
		}

		tickets, err := repo.Refresh(ctx)
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
		cached, err := c.GetRecent(ctx)
		require.NoError(t, err)
		assert.Len(t, cached, 2)
	})
}

func TestTicketRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			require.Equal(t, chain.MethodTickets, method)
			assert.Equal(t, big.NewInt(7), args[0])
			return chaintest.TicketValues(ticket(7, 42)), nil
		}

		found, err := repo.FindByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), found.ID)
		assert.Equal(t, int64(42), found.Sold)

		_, err = repo.FindByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 1, client.ReadCount(chain.MethodTickets))
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return chaintest.TicketValues(&model.Ticket{}), nil
		}

		_, err := repo.FindByID(ctx, 99999)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTicketNotFound, err)
	})

	t.Run("Malformed", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return []any{big.NewInt(1)}, nil
		}

		_, err := repo.FindByID(ctx, 1)
		assert.ErrorIs(t, err, apperrors.ErrMalformedChainData)
	})
}

func TestTicketRepository_IsRegistered(t *testing.T) {
	ctx := context.Background()
	repo, client, _ := setupTicketRepo(0)
	client.ReadFunc = func(method string, args []any) ([]any, error) {
		require.Equal(t, chain.MethodIsRegistered, method)
		return chaintest.BoolValues(args[1].(common.Address) == alice), nil
	}

	registered, err := repo.IsRegistered(ctx, 3, alice)
	require.NoError(t, err)
	assert.True(t, registered)

	registered, err = repo.IsRegistered(ctx, 3, bob)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = repo.IsRegistered(ctx, 3, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, client.ReadCount(chain.MethodIsRegistered))

	require.NoError(t, repo.Invalidate(ctx, 3))
	_, err = repo.IsRegistered(ctx, 3, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, client.ReadCount(chain.MethodIsRegistered))
}

func TestTicketRepository_FindListing(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			require.Equal(t, chain.MethodGetListing, method)
			return chaintest.ListingValues(&model.ResaleListing{TokenID: 11, TicketID: 3, Seller: alice, Price: big.NewInt(2e17), Active: true}), nil
		}

		listing, err := repo.FindListing(ctx, 11)
		require.NoError(t, err)
		assert.True(t, listing.Active)
		assert.Equal(t, alice, listing.Seller)

		require.NoError(t, repo.InvalidateListing(ctx, 11))
		_, err = repo.FindListing(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, 2, client.ReadCount(chain.MethodGetListing))
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, client, _ := setupTicketRepo(0)
		client.ReadFunc = func(method string, args []any) ([]any, error) {
			return chaintest.ListingValues(&model.ResaleListing{}), nil
		}

		_, err := repo.FindListing(ctx, 12)
		assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
	})
}

func TestTicketRepository_Registrations(t *testing.T) {
	ctx := context.Background()
	repo, client, _ := setupTicketRepo(500)
	first := common.HexToHash("0x01")
	second := common.HexToHash("0x02")
	client.Logs = []types.Log{
		chaintest.RegistrationLog(3, alice, 10, first, 600),
		chaintest.RegistrationLog(4, bob, 11, common.HexToHash("0x03"), 610),
		chaintest.RegistrationLog(3, alice, 12, second, 700),
		{Topics: []common.Hash{chain.TicketABI().Events[chain.EventTicketRegistered].ID}},
	}

	t.Run("FindRegistrations", func(t *testing.T) {
		regs, err := repo.FindRegistrations(ctx, alice)
		require.NoError(t, err)
		require.Len(t, regs, 2)
		assert.Equal(t, int64(10), regs[0].TokenID)
		assert.Equal(t, int64(12), regs[1].TokenID)
	})

	t.Run("PurchaseHashUsesLatest", func(t *testing.T) {
		hash, err := repo.PurchaseHash(ctx, 3, alice)
		require.NoError(t, err)
		assert.Equal(t, second.Hex(), hash)
	})

	t.Run("HashUnavailable", func(t *testing.T) {
		_, err := repo.PurchaseHash(ctx, 4, alice)
		assert.ErrorIs(t, err, apperrors.ErrHashUnavailable)
	})

	t.Run("LogQueryFails", func(t *testing.T) {
		failing, c, _ := setupTicketRepo(0)
		c.LogsErr = errors.New("query returned more than 10000 results")
		_, err := failing.PurchaseHash(ctx, 3, alice)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrHashUnavailable)
	})
}
