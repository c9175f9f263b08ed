package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const recentTicketsKey = "ticket:recent"

// 設定 hash 欄位並只在第一次寫入時設定 TTL，避免每次查詢都延長過期時間
var setRegisteredScript = redis.NewScript(`
	local key = KEYS[1]
	local wallet = ARGV[1]
	local flag = ARGV[2]
	local ttl = tonumber(ARGV[3])

	redis.call('HSET', key, wallet, flag)
	if redis.call('TTL', key) < 0 then
		redis.call('EXPIRE', key, ttl)
	end
	return 1
`)

// TicketCache 鏈上讀取結果的 cache-aside；miss 一律回 apperrors.ErrCacheMiss
type TicketCache interface {
	GetRecent(ctx context.Context) ([]*model.Ticket, error)
	SetRecent(ctx context.Context, tickets []*model.Ticket) error
	GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error)
	SetTicket(ctx context.Context, ticket *model.Ticket) error
	GetRegistered(ctx context.Context, ticketID int64, wallet common.Address) (bool, error)
	SetRegistered(ctx context.Context, ticketID int64, wallet common.Address, registered bool) error
	GetRegistrations(ctx context.Context, wallet common.Address) ([]model.Registration, error)
	SetRegistrations(ctx context.Context, wallet common.Address, regs []model.Registration) error
	GetListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error)
	SetListing(ctx context.Context, listing *model.ResaleListing) error
	// 交易 settled 後刪除該活動的所有 key（含列表）以及相關錢包的購票紀錄
	Invalidate(ctx context.Context, ticketID int64, wallets ...common.Address) error
	InvalidateListing(ctx context.Context, tokenID int64) error
	// 新活動只影響列表
	InvalidateRecent(ctx context.Context) error
}

type RedisTicketCacheImpl struct {
	client          redis.Cmdable
	ticketTTL       time.Duration
	registrationTTL time.Duration
}

func NewRedisTicketCache(client redis.Cmdable, ticketTTL, registrationTTL time.Duration) TicketCache {
	return &RedisTicketCacheImpl{
		client:          client,
		ticketTTL:       ticketTTL,
		registrationTTL: registrationTTL,
	}
}

func ticketKey(ticketID int64) string {
	return fmt.Sprintf("ticket:%d:info", ticketID)
}

func registeredKey(ticketID int64) string {
	return fmt.Sprintf("ticket:%d:registered", ticketID)
}

func walletRegistrationsKey(wallet common.Address) string {
	return fmt.Sprintf("wallet:%s:registrations", walletField(wallet))
}

func listingKey(tokenID int64) string {
	return fmt.Sprintf("listing:%d", tokenID)
}

func walletField(wallet common.Address) string {
	return strings.ToLower(wallet.Hex())
}

func (c *RedisTicketCacheImpl) GetRecent(ctx context.Context) ([]*model.Ticket, error) {
	var tickets []*model.Ticket
	if err := c.getJSON(ctx, recentTicketsKey, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *RedisTicketCacheImpl) SetRecent(ctx context.Context, tickets []*model.Ticket) error {
	return c.setJSON(ctx, recentTicketsKey, tickets, c.ticketTTL)
}

func (c *RedisTicketCacheImpl) GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := c.getJSON(ctx, ticketKey(ticketID), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *RedisTicketCacheImpl) SetTicket(ctx context.Context, ticket *model.Ticket) error {
	return c.setJSON(ctx, ticketKey(ticket.ID), ticket, c.ticketTTL)
}

func (c *RedisTicketCacheImpl) GetRegistered(ctx context.Context, ticketID int64, wallet common.Address) (bool, error) {
	val, err := c.client.HGet(ctx, registeredKey(ticketID), walletField(wallet)).Result()
	if errors.Is(err, redis.Nil) {
		return false, apperrors.ErrCacheMiss
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (c *RedisTicketCacheImpl) SetRegistered(ctx context.Context, ticketID int64, wallet common.Address, registered bool) error {
	flag := "0"
	if registered {
		flag = "1"
	}
	ttl := int(c.registrationTTL / time.Second)
	return setRegisteredScript.Run(ctx, c.client, []string{registeredKey(ticketID)}, walletField(wallet), flag, ttl).Err()
}

func (c *RedisTicketCacheImpl) GetRegistrations(ctx context.Context, wallet common.Address) ([]model.Registration, error) {
	var regs []model.Registration
	if err := c.getJSON(ctx, walletRegistrationsKey(wallet), &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (c *RedisTicketCacheImpl) SetRegistrations(ctx context.Context, wallet common.Address, regs []model.Registration) error {
	return c.setJSON(ctx, walletRegistrationsKey(wallet), regs, c.registrationTTL)
}

func (c *RedisTicketCacheImpl) GetListing(ctx context.Context, tokenID int64) (*model.ResaleListing, error) {
	var listing model.ResaleListing
	if err := c.getJSON(ctx, listingKey(tokenID), &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *RedisTicketCacheImpl) SetListing(ctx context.Context, listing *model.ResaleListing) error {
	return c.setJSON(ctx, listingKey(listing.TokenID), listing, c.ticketTTL)
}

func (c *RedisTicketCacheImpl) Invalidate(ctx context.Context, ticketID int64, wallets ...common.Address) error {
	keys := []string{recentTicketsKey, ticketKey(ticketID), registeredKey(ticketID)}
	for _, w := range wallets {
		keys = append(keys, walletRegistrationsKey(w))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisTicketCacheImpl) InvalidateListing(ctx context.Context, tokenID int64) error {
	return c.client.Del(ctx, listingKey(tokenID)).Err()
}

func (c *RedisTicketCacheImpl) InvalidateRecent(ctx context.Context) error {
	return c.client.Del(ctx, recentTicketsKey).Err()
}

func (c *RedisTicketCacheImpl) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return apperrors.ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		// 壞掉的 entry 視為 miss，下次寫入會覆蓋
		return fmt.Errorf("%w: decode %s: %v", apperrors.ErrCacheMiss, key, err)
	}
	return nil
}

func (c *RedisTicketCacheImpl) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, string(data), ttl).Err()
}
