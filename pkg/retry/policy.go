// Package retry holds the backoff policy shared by everything that retries
// optimistic transactions.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy 指数退避: 第n次失败后等待 BaseDelay * 2^n, 并叠加 ±Jitter 比例的抖动
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64

	// 测试中可以替换
	Sleep  func(ctx context.Context, d time.Duration) error
	Random func() float64
}

func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Jitter:      0.2,
	}
}

// Delay 返回第 attempt 次(从1开始)失败之后的等待时间
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.Jitter > 0 {
		r := rand.Float64
		if p.Random != nil {
			r = p.Random
		}
		d += d * p.Jitter * (2*r() - 1)
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func (p *Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do 执行 fn, 对 retryable 判定为可重试的错误按策略退避后重试.
// 返回实际尝试次数和最后一次的错误.
func (p *Policy) Do(ctx context.Context, retryable func(error) bool, fn func(attempt int) error) (int, error) {
	var err error
	max := p.attempts()
	for attempt := 1; attempt <= max; attempt++ {
		if err = fn(attempt); err == nil {
			return attempt, nil
		}
		if !retryable(err) || attempt == max {
			return attempt, err
		}
		if serr := p.sleep(ctx, p.Delay(attempt)); serr != nil {
			return attempt, serr
		}
	}
	return max, err
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
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
