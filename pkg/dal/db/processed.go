package db

import (
	"context"
	"time"

	"FoodTok.com/cmd/model"
	"gorm.io/gorm"
)

func IsProcessed(ctx context.Context, tx *gorm.DB, key string) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.ProcessedEvent{}).Where("event_key = ?", key).Count(&count).Error; err != nil {
		return false, Translate(err)
	}
	return count > 0, nil
}

// MarkProcessed 并发重复写入会触发主键冲突, 被归类为可重试错误, 重试时 IsProcessed 会命中
func MarkProcessed(ctx context.Context, tx *gorm.DB, key string) error {
	return Translate(tx.WithContext(ctx).Create(&model.ProcessedEvent{Key: key, CreatedAt: time.Now().UTC()}).Error)
}

// PurgeProcessed 清理过期的幂等记录
func PurgeProcessed(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	res := tx.WithContext(ctx).Where("created_at < ?", before).Delete(&model.ProcessedEvent{})
	return res.RowsAffected, Translate(res.Error)
}
