package queue

import (
	"context"

	"nft-ticket-marketplace/internal/model"
)

// Delivery 一筆待寫入 journal 的 activity；處理完必須 Ack 或 Nack
type Delivery struct {
	Data *model.Activity
	Ack  func()
	Nack func(requeue bool)
}

// ActivityQueue 交易結束（settled / failed）後的 activity 事件，與 HTTP 請求路徑解耦
type ActivityQueue interface {
	Publish(ctx context.Context, activity *model.Activity) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryActivityQueueImpl struct {
	ch chan *model.Activity
}

func NewMemoryActivityQueue(bufferSize int) ActivityQueue {
	return &MemoryActivityQueueImpl{
		ch: make(chan *model.Activity, bufferSize),
	}
}

func (q *MemoryActivityQueueImpl) Publish(ctx context.Context, activity *model.Activity) error {
	select {
	case q.ch <- activity:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryActivityQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case activity := <-q.ch:
				d := Delivery{
					Data: activity,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// 不能在 consumer goroutine 內直接寫回 channel，buffer 滿時會卡死
						go func() {
							select {
							case q.ch <- activity:
							case <-ctx.Done():
							}
						}()
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
