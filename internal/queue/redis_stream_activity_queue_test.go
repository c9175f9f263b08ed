package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/testutil"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRdb *redis.Client

func TestMain(m *testing.M) {
	rdb, cleanup, err := testutil.SetupRedisOnly()
	if err != nil {
		log.Printf("test redis unavailable, stream integration tests will be skipped: %v", err)
	} else {
		testRdb = rdb
	}
	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func cleanupStream(t *testing.T) *redis.Client {
	t.Helper()
	rdb := testutil.RequireRedis(t, testRdb)
	require.NoError(t, rdb.Del(context.Background(), StreamKey).Err())
	return rdb
}

// --- redismock：指令層級 ---

func TestNewRedisStreamActivityQueue_ConsumerGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("ExistingGroupIsFine", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectXGroupCreateMkStream(StreamKey, ConsumerGroupName, "0").
			SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))

		q, err := NewRedisStreamActivityQueue(ctx, db, "c1", nil)
		require.NoError(t, err)
		assert.NotNil(t, q)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OtherErrorsFail", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectXGroupCreateMkStream(StreamKey, ConsumerGroupName, "0").
			SetErr(errors.New("NOPERM this user has no permissions"))

		_, err := NewRedisStreamActivityQueue(ctx, db, "c1", nil)
		assert.Error(t, err)
	})
}

func TestRedisStreamActivityQueue_PublishArgs(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	mock.ExpectXGroupCreateMkStream(StreamKey, ConsumerGroupName, "0").SetVal("OK")

	q, err := NewRedisStreamActivityQueue(ctx, db, "c1", &RedisStreamConfig{MaxLen: 500})
	require.NoError(t, err)

	activity := sampleActivity(model.TxActionBuyTicket)
	payload, err := json.Marshal(activity)
	require.NoError(t, err)
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: 500,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{payloadField: string(payload)},
	}).SetVal("1-0")

	require.NoError(t, q.Publish(ctx, activity))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- 整合測試：需要本機 redis ---

func TestRedisStreamActivityQueue_DeliversPublishedMessage(t *testing.T) {
	rdb := cleanupStream(t)
	ctx := context.Background()

	q, err := NewRedisStreamActivityQueue(ctx, rdb, "deliver-test", nil)
	require.NoError(t, err)

	activity := sampleActivity(model.TxActionCancelEvent)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, activity.OperationID, d.Data.OperationID)
	assert.Equal(t, activity.Action, d.Data.Action)
	require.NotNil(t, d.Data.TicketID)
	assert.Equal(t, *activity.TicketID, *d.Data.TicketID)
	d.Ack()
}

func TestRedisStreamActivityQueue_NackDiscard(t *testing.T) {
	rdb := cleanupStream(t)
	ctx := context.Background()

	q, err := NewRedisStreamActivityQueue(ctx, rdb, "nack-discard-test", &RedisStreamConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	activity := sampleActivity(model.TxActionClaimRefund)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	receive(t, ch).Nack(false)

	select {
	case d, ok := <-ch:
		if ok && d.Data.OperationID == activity.OperationID {
			t.Fatal("discarded message was redelivered")
		}
	case <-time.After(time.Second):
	}
}

func TestRedisStreamActivityQueue_NackRequeueRedelivers(t *testing.T) {
	rdb := cleanupStream(t)
	ctx := context.Background()

	q, err := NewRedisStreamActivityQueue(ctx, rdb, "nack-requeue-test", &RedisStreamConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	activity := sampleActivity(model.TxActionTransfer)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	receive(t, ch).Nack(true)

	again := receive(t, ch)
	assert.Equal(t, activity.OperationID, again.Data.OperationID)
	again.Ack()
}
