package execution

import (
	"context"
	"time"
)

// Waiter 控制分段之间的等待，ctx 取消时立即返回。
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter 基于 time.Timer 的可取消等待。
type TimerWaiter struct{}

// Wait 阻塞 d 或直到 ctx 取消。
func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
