package services

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// CallPool giới hạn số lần gọi model chạy đồng thời trong một run.
// Mỗi run sở hữu pool riêng, Close khi run kết thúc.
type CallPool struct {
	sem  *semaphore.Weighted
	size int64
}

func NewCallPool(size int) *CallPool {
	if size < 1 {
		size = 1
	}
	return &CallPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Do chiếm một slot rồi chạy fn, trả kết quả về caller.
// Ctx bị hủy trong lúc chờ slot thì trả lỗi ctx ngay.
func (p *CallPool) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Close chờ toàn bộ call đang chạy xong, không cho call mới lọt ra ngoài run
func (p *CallPool) Close() {
	_ = p.sem.Acquire(context.Background(), p.size)
	p.sem.Release(p.size)
}
