package worker

import (
	"context"
	"errors"

	"nft-ticket-marketplace/internal/queue"
	"nft-ticket-marketplace/internal/repository"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type ActivityWorker interface {
	// 訂閱 activity 隊列並寫入 journal，ctx 結束時停止
	Start(ctx context.Context) error
}

type ActivityWorkerImpl struct {
	repo  repository.ActivityRepository
	queue queue.ActivityQueue
	log   *zap.Logger
}

func NewActivityWorker(repo repository.ActivityRepository, queue queue.ActivityQueue) ActivityWorker {
	return &ActivityWorkerImpl{
		repo:  repo,
		queue: queue,
		log:   logger.WithComponent("worker"),
	}
}

func (w *ActivityWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()
	return nil
}

func (w *ActivityWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	_, err := w.repo.Create(ctx, msg.Data)
	if err == nil {
		msg.Ack()
		return
	}

	if permanent(err) {
		w.log.Error("dropping activity",
			zap.String("operation_id", msg.Data.OperationID.String()),
			zap.Error(err),
		)
		msg.Nack(false)
		return
	}

	// 資料庫暫時連不上：留給 queue 重送
	w.log.Warn("persist activity failed, will retry",
		zap.String("operation_id", msg.Data.OperationID.String()),
		zap.Error(err),
	)
	msg.Nack(true)
}

// permanent 資料本身有問題（22xxx data exception、23xxx constraint violation），重試也不會成功
func permanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23")
}
