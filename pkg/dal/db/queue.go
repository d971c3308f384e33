package db

import (
	"context"
	"time"

	"FoodTok.com/cmd/model"
	"gorm.io/gorm"
)

func EnqueueReconciliation(ctx context.Context, tx *gorm.DB, task *model.ReconciliationTask) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	return Translate(tx.WithContext(ctx).Create(task).Error)
}

// PendingTasks 返回还没有被更新的重算结果覆盖的任务
func PendingTasks(ctx context.Context, tx *gorm.DB, afterID int64, limit int) ([]*model.ReconciliationTask, error) {
	tasks := make([]*model.ReconciliationTask, 0, limit)
	err := tx.WithContext(ctx).Model(&model.ReconciliationTask{}).
		Where("id > ?", afterID).
		Where(`NOT EXISTS (SELECT 1 FROM repair_records r
			WHERE r.kind = reconciliation_tasks.kind
			AND r.target_id = reconciliation_tasks.target_id
			AND r.checked_at >= reconciliation_tasks.enqueued_at)`).
		Order("id").
		Limit(limit).
		Find(&tasks).Error
	return tasks, Translate(err)
}

func CreateRepairRecord(ctx context.Context, tx *gorm.DB, rec *model.RepairRecord) error {
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now().UTC()
	}
	return Translate(tx.WithContext(ctx).Create(rec).Error)
}

func ListRepairRecords(ctx context.Context, tx *gorm.DB, since time.Time) ([]*model.RepairRecord, error) {
	recs := make([]*model.RepairRecord, 0)
	err := tx.WithContext(ctx).Where("checked_at >= ?", since).Order("id").Find(&recs).Error
	return recs, Translate(err)
}
