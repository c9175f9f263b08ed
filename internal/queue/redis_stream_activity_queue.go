package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "activities:stream"
	ConsumerGroupName  = "activity-workers"
	ConsumerNamePrefix = "worker"

	payloadField = "activity"
)

// RedisStreamConfig 可注入的逾時與重試設定；零值欄位使用預設
type RedisStreamConfig struct {
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間才被 XAUTOCLAIM 領取
	MaxRetryCount      int           // 超過此次數視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration
	MaxLen             int64 // stream 近似長度上限
}

func defaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
		MaxLen:             100_000,
	}
}

type RedisStreamActivityQueueImpl struct {
	client       redis.Cmdable
	consumerName string
	cfg          RedisStreamConfig
	log          *zap.Logger
}

// NewRedisStreamActivityQueue config 可為 nil
func NewRedisStreamActivityQueue(ctx context.Context, client redis.Cmdable, consumerID string, config *RedisStreamConfig) (ActivityQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	cfg := defaultRedisStreamConfig()
	if config != nil {
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.MaxRetryCount > 0 {
			cfg.MaxRetryCount = config.MaxRetryCount
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
		if config.MaxLen > 0 {
			cfg.MaxLen = config.MaxLen
		}
	}
	q := &RedisStreamActivityQueueImpl{
		client:       client,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		log:          logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamActivityQueueImpl) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamActivityQueueImpl) Publish(ctx context.Context, activity *model.Activity) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: q.cfg.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{payloadField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamActivityQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		go q.runAutoClaim(ctx, out)
		for ctx.Err() == nil {
			q.readAndDeliver(ctx, out)
		}
	}()
	return out, nil
}

// readAndDeliver 只讀新訊息（">"）；已投遞但未 ack 的訊息由 XAUTOCLAIM 逾時後領回
func (q *RedisStreamActivityQueueImpl) readAndDeliver(ctx context.Context, out chan<- Delivery) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroupName,
		Consumer: q.consumerName,
		Streams:  []string{StreamKey, ">"},
		Count:    10,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		q.log.Error("XReadGroup failed", zap.Error(err))
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return
	}

	for _, stream := range streams {
		if stream.Stream != StreamKey {
			continue
		}
		for _, msg := range stream.Messages {
			if !q.deliver(ctx, out, msg) {
				return
			}
		}
	}
}

// deliver ctx 結束時回傳 false
func (q *RedisStreamActivityQueueImpl) deliver(ctx context.Context, out chan<- Delivery, msg redis.XMessage) bool {
	d, ok := q.newDelivery(ctx, msg)
	if !ok {
		return true
	}
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// exceededRetries 毒藥消息直接 ack 丟棄
func (q *RedisStreamActivityQueueImpl) exceededRetries(ctx context.Context, messageID string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamKey,
		Group:  ConsumerGroupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		q.log.Warn("XPendingExt failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	if len(pending) == 0 || int(pending[0].RetryCount) < q.cfg.MaxRetryCount {
		return false
	}
	q.log.Warn("discard poison message",
		zap.String("message_id", messageID),
		zap.Int64("retries", pending[0].RetryCount),
		zap.Int("max_retries", q.cfg.MaxRetryCount),
	)
	q.ack(ctx, messageID)
	return true
}

func (q *RedisStreamActivityQueueImpl) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	start := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		claimed, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamKey,
			Group:    ConsumerGroupName,
			Consumer: q.consumerName,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    10,
			Start:    start,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			q.log.Error("XAutoClaim failed", zap.Error(err))
			continue
		}
		start = next
		if start == "" {
			start = "0-0"
		}

		for _, msg := range claimed {
			if q.exceededRetries(ctx, msg.ID) {
				continue
			}
			if !q.deliver(ctx, out, msg) {
				return
			}
		}
	}
}

func (q *RedisStreamActivityQueueImpl) newDelivery(ctx context.Context, msg redis.XMessage) (Delivery, bool) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		q.log.Warn("invalid message: missing activity field", zap.String("message_id", msg.ID))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}
	var activity model.Activity
	if err := json.Unmarshal([]byte(raw), &activity); err != nil {
		q.log.Warn("unmarshal activity failed", zap.String("message_id", msg.ID), zap.Error(err))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}
	id := msg.ID
	return Delivery{
		Data: &activity,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，ClaimMinIdleTime 後由 XAUTOCLAIM 領回，形成延遲重試
				q.log.Info("message nack(requeue), will retry", zap.String("message_id", id))
				return
			}
			q.ack(ctx, id)
		},
	}, true
}

func (q *RedisStreamActivityQueueImpl) ack(ctx context.Context, id string) {
	if err := q.client.XAck(ctx, StreamKey, ConsumerGroupName, id).Err(); err != nil {
		q.log.Error("XAck failed", zap.String("message_id", id), zap.Error(err))
	}
}
