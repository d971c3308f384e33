package service

import (
	"context"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
)

// ForceReconcile 用作者所有有效视频的点赞数之和覆盖 totalLikes
func (s *ReconcileService) ForceReconcile(ctx context.Context, userID string) (*Outcome, error) {
	if userID == "" {
		return nil, errno.RequestErr.WithMessage("userId is required")
	}
	ok, err := db.UserExists(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errno.NotFoundErr.WithMessage("user " + userID + " not found")
	}
	return s.Recompute(ctx, model.KindUserTotalLikes, userID, model.RepairSourceManual, s.now().UTC(), false)
}

// ForceReconcileAll 按页遍历所有用户, 单个用户失败不影响其他用户
func (s *ReconcileService) ForceReconcileAll(ctx context.Context) ([]*Outcome, error) {
	results := make([]*Outcome, 0)
	err := s.eachUser(ctx, func(userID string) error {
		out, err := s.Recompute(ctx, model.KindUserTotalLikes, userID, model.RepairSourceManual, s.now().UTC(), false)
		if err != nil {
			hlog.CtxErrorf(ctx, "force reconcile %s: %v", userID, err)
			return nil
		}
		results = append(results, out)
		return nil
	})
	return results, err
}

func (s *ReconcileService) eachUser(ctx context.Context, fn func(userID string) error) error {
	after := ""
	for {
		ids, err := db.ListUserIDsPage(ctx, s.db, after, s.pageSize)
		if err != nil {
			return errors.WithMessage(err, "list users")
		}
		for _, id := range ids {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := fn(id); err != nil {
				return err
			}
		}
		if len(ids) < s.pageSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

type DrainStats struct {
	Resolved int `json:"resolved"`
	Changed  int `json:"changed"`
	Failed   int `json:"failed"`
}

// DrainQueue 处理所有未被覆盖的修复任务. 同一目标在一轮中只重算一次
func (s *ReconcileService) DrainQueue(ctx context.Context) (*DrainStats, error) {
	stats := &DrainStats{}
	seen := make(map[string]bool)
	var after int64
	for {
		tasks, err := db.PendingTasks(ctx, s.db, after, s.pageSize)
		if err != nil {
			return stats, errors.WithMessage(err, "list pending tasks")
		}
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			key := string(task.Kind) + "/" + task.TargetID
			if seen[key] {
				continue
			}
			seen[key] = true
			// 先确定检查时间再读源数据, 之后入队的任务不会被这次结果覆盖
			checkedAt := s.now().UTC()
			out, err := s.Recompute(ctx, task.Kind, task.TargetID, model.RepairSourceTask, checkedAt, true)
			switch {
			case err == nil:
				stats.Resolved++
				if out.Changed {
					stats.Changed++
				}
			case errors.Is(err, errno.NotFoundErr) || errors.Is(err, errno.RequestErr):
				hlog.CtxWarnf(ctx, "task %d %s: target unusable, resolving: %v", task.ID, key, err)
				if err := s.resolveUnusable(ctx, task, checkedAt); err != nil {
					return stats, err
				}
				stats.Resolved++
			default:
				hlog.CtxErrorf(ctx, "task %d %s: %v", task.ID, key, err)
				stats.Failed++
			}
		}
		if len(tasks) < s.pageSize {
			break
		}
		after = tasks[len(tasks)-1].ID
	}
	if stats.Resolved > 0 || stats.Failed > 0 {
		hlog.CtxInfof(ctx, "reconciliation queue drained: resolved=%d changed=%d failed=%d", stats.Resolved, stats.Changed, stats.Failed)
	}
	return stats, nil
}

func (s *ReconcileService) resolveUnusable(ctx context.Context, task *model.ReconciliationTask, checkedAt time.Time) error {
	return db.CreateRepairRecord(ctx, s.db, &model.RepairRecord{
		Kind:      task.Kind,
		TargetID:  task.TargetID,
		Source:    model.RepairSourceTask,
		CheckedAt: checkedAt,
	})
}

type SweepStats struct {
	Queue   *DrainStats `json:"queue"`
	Users   int         `json:"users"`
	Changed int         `json:"changed"`
}

// Sweep 先处理修复队列, 再对每个用户重算四个聚合值. 没有新写入时第二次执行不会写任何东西
func (s *ReconcileService) Sweep(ctx context.Context) (*SweepStats, error) {
	queue, err := s.DrainQueue(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SweepStats{Queue: queue}
	err = s.eachUser(ctx, func(userID string) error {
		stats.Users++
		for _, kind := range UserKinds {
			out, err := s.Recompute(ctx, kind, userID, model.RepairSourceSweep, s.now().UTC(), false)
			if err != nil {
				hlog.CtxErrorf(ctx, "sweep %s %s: %v", kind, userID, err)
				continue
			}
			if out.Changed {
				stats.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	hlog.CtxInfof(ctx, "sweep finished: users=%d changed=%d", stats.Users, stats.Changed)
	return stats, nil
}
