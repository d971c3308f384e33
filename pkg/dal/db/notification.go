package db

import (
	"context"

	"FoodTok.com/cmd/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateNotification 通知id是确定的, 重复投递时忽略
func CreateNotification(ctx context.Context, tx *gorm.DB, n *model.Notification) error {
	return Translate(tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(n).Error)
}

// CreateNotifications 批量写入, 调用方保证 len(ns) 不超过单批写入上限
func CreateNotifications(ctx context.Context, tx *gorm.DB, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return Translate(tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ns).Error)
}

func DeleteNotification(ctx context.Context, tx *gorm.DB, id string) error {
	return Translate(tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Notification{}).Error)
}

func ListNotifications(ctx context.Context, tx *gorm.DB, recipientID string) ([]*model.Notification, error) {
	ns := make([]*model.Notification, 0)
	err := tx.WithContext(ctx).Where("recipient_id = ?", recipientID).Order("created_at, id").Find(&ns).Error
	return ns, Translate(err)
}
