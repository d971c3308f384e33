package counter

import (
	"context"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"gorm.io/gorm"
)

// Queue 接收重试耗尽后需要修复的聚合值
type Queue interface {
	Enqueue(ctx context.Context, tasks []*model.ReconciliationTask) error
}

// DBQueue 把任务追加到 reconciliation_tasks 表
type DBQueue struct {
	db *gorm.DB
}

func NewDBQueue(gdb *gorm.DB) *DBQueue {
	return &DBQueue{db: gdb}
}

func (q *DBQueue) Enqueue(ctx context.Context, tasks []*model.ReconciliationTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, task := range tasks {
			if err := db.EnqueueReconciliation(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}
