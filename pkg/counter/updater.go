// Package counter applies derived-counter changes inside optimistic
// transactions. A change either commits, or after the retry budget is spent
// it is recorded as a reconciliation task so the repair sweep can fix it.
package counter

import (
	"context"
	"fmt"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/metrics"
	"FoodTok.com/pkg/retry"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Updater struct {
	db     *gorm.DB
	policy *retry.Policy
	queue  Queue
}

// NewUpdater policy 为 nil 时使用默认策略, queue 为 nil 时写入同一个数据库
func NewUpdater(gdb *gorm.DB, policy *retry.Policy, queue Queue) *Updater {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	if queue == nil {
		queue = NewDBQueue(gdb)
	}
	return &Updater{db: gdb, policy: policy, queue: queue}
}

func (u *Updater) DB() *gorm.DB {
	return u.db
}

// Repair 描述重试耗尽时要入队的修复任务
type Repair struct {
	Kind     model.ReconcileKind
	TargetID string
	Expected int64
	Actual   int64
}

// Op 一个可以包含多个文档写入的事务操作
type Op struct {
	Name string
	// EventKey 非空时, EventKey+":"+Name 在同一事务内写入幂等表
	EventKey string
	Repairs  []Repair
	Fn       func(tx *Tx) error
}

type Result struct {
	Value     int64
	Applied   bool
	Duplicate bool
	Degraded  bool
	Attempts  int
	// Clamped 提交时被截断到0的字段, 已经追加了重算任务
	Clamped []Repair
}

// Execute 在事务中执行 op, 冲突时按策略重试.
// 重试耗尽时把 op.Repairs 入队并返回 Degraded, 入队失败时返回错误.
// op.Repairs 在耗尽之后才读取, Fn 可以在每次尝试中更新它.
func (u *Updater) Execute(ctx context.Context, op *Op) (*Result, error) {
	res := &Result{}
	var lastErr error
	attempts, err := u.policy.Do(ctx, errno.IsRetryable, func(attempt int) error {
		res.Duplicate = false
		res.Clamped = nil
		lastErr = u.once(ctx, op, res)
		return lastErr
	})
	res.Attempts = attempts
	metrics.CounterAttempts.Observe(float64(attempts))
	if err == nil {
		res.Applied = !res.Duplicate
		if res.Duplicate {
			metrics.CounterOps.WithLabelValues(metrics.ResultDuplicate).Inc()
		} else {
			metrics.CounterOps.WithLabelValues(metrics.ResultApplied).Inc()
		}
		if len(res.Clamped) > 0 {
			hlog.CtxInfof(ctx, "%s: %d counter(s) clamped at zero, queue recompute", op.Name, len(res.Clamped))
			if qerr := u.Enqueue(ctx, op.Name+": counter clamped at zero", res.Clamped...); qerr != nil {
				// 变更已经提交, 只能记录下来等全量扫描
				hlog.CtxErrorf(ctx, "%s: enqueue clamp recompute failed: %v", op.Name, qerr)
			}
		}
		return res, nil
	}
	if !errno.IsRetryable(lastErr) || len(op.Repairs) == 0 {
		metrics.CounterOps.WithLabelValues(metrics.ResultFailed).Inc()
	}
	if !errno.IsRetryable(lastErr) {
		return res, err
	}
	if len(op.Repairs) == 0 {
		return res, errors.WithMessage(lastErr, fmt.Sprintf("%s: retries exhausted after %d attempts", op.Name, attempts))
	}

	hlog.CtxWarnf(ctx, "%s: retries exhausted after %d attempts, queue %d repair(s): %v", op.Name, attempts, len(op.Repairs), lastErr)
	// 调用方的 ctx 可能已经取消, 任务依然要落库
	if qerr := u.Enqueue(ctx, fmt.Sprintf("%s: %v", op.Name, lastErr), op.Repairs...); qerr != nil {
		hlog.CtxErrorf(ctx, "%s: enqueue reconciliation failed: %v", op.Name, qerr)
		metrics.CounterOps.WithLabelValues(metrics.ResultFailed).Inc()
		return res, errors.WithMessage(qerr, op.Name+": enqueue reconciliation")
	}
	metrics.CounterOps.WithLabelValues(metrics.ResultDegraded).Inc()
	res.Degraded = true
	return res, nil
}

// Enqueue 直接追加修复任务, 用于无法在事务内完成的清理
func (u *Updater) Enqueue(ctx context.Context, reason string, repairs ...Repair) error {
	tasks := make([]*model.ReconciliationTask, 0, len(repairs))
	for _, r := range repairs {
		tasks = append(tasks, &model.ReconciliationTask{
			TargetID: r.TargetID,
			Kind:     r.Kind,
			Expected: r.Expected,
			Actual:   r.Actual,
			Reason:   reason,
		})
	}
	if err := u.queue.Enqueue(context.WithoutCancel(ctx), tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		metrics.TasksEnqueued.WithLabelValues(string(t.Kind)).Inc()
	}
	return nil
}

func (u *Updater) once(ctx context.Context, op *Op, res *Result) error {
	return u.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		key := ""
		if op.EventKey != "" {
			key = op.EventKey + ":" + op.Name
			done, err := db.IsProcessed(ctx, gtx, key)
			if err != nil {
				return err
			}
			if done {
				res.Duplicate = true
				return nil
			}
		}
		tx := &Tx{ctx: ctx, db: gtx}
		if err := op.Fn(tx); err != nil {
			return err
		}
		if key != "" {
			if err := db.MarkProcessed(ctx, gtx, key); err != nil {
				return err
			}
		}
		res.Clamped = tx.clamped
		return nil
	})
}

// Delta 单个计数字段的增减
type Delta struct {
	Target   model.DocRef
	Field    string
	Amount   int64
	EventKey string
	// Precondition 在事务内读取之后执行, 返回 errno.ConflictErr 会触发重试
	Precondition func(tx *Tx) error
}

// ApplyDelta 写入 max(0, current+Amount). 重试耗尽时入队一个该字段的修复任务
func (u *Updater) ApplyDelta(ctx context.Context, d Delta) (*Result, error) {
	if !db.IsCounter(d.Target, d.Field) {
		return nil, errno.RequestErr.WithMessage(fmt.Sprintf("%s has no counter %s", d.Target, d.Field))
	}
	var value int64
	op := &Op{
		Name:     "delta:" + d.Target.String() + "." + d.Field,
		EventKey: d.EventKey,
		Repairs:  []Repair{{Kind: model.KindFor(d.Target, d.Field), TargetID: d.Target.ID}},
	}
	op.Fn = func(tx *Tx) error {
		current, err := tx.Read(d.Target, d.Field)
		if err != nil {
			return err
		}
		// 记录最后一次观察到的值, 耗尽时写进修复任务
		op.Repairs[0].Actual = current
		op.Repairs[0].Expected = max(0, current+d.Amount)
		if d.Precondition != nil {
			if err := d.Precondition(tx); err != nil {
				return err
			}
		}
		value, err = tx.Add(d.Target, d.Field, d.Amount)
		return err
	}
	res, err := u.Execute(ctx, op)
	if err == nil && res.Applied {
		res.Value = value
	}
	return res, err
}
