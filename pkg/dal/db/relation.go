package db

import (
	"context"
	"errors"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	"gorm.io/gorm"
)

func GetFollowEdge(ctx context.Context, tx *gorm.DB, edgeID string) (*model.FollowEdge, error) {
	var edge model.FollowEdge
	if err := tx.WithContext(ctx).Where("id = ?", edgeID).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.NotFoundErr.WithMessage("follow edge " + edgeID + " not found")
		}
		return nil, Translate(err)
	}
	return &edge, nil
}

func CreateFollowEdge(ctx context.Context, tx *gorm.DB, edge *model.FollowEdge) error {
	return Translate(tx.WithContext(ctx).Create(edge).Error)
}

// DeleteFollowEdge 返回是否真的删除了一条记录
func DeleteFollowEdge(ctx context.Context, tx *gorm.DB, edgeID string) (bool, error) {
	res := tx.WithContext(ctx).Where("id = ?", edgeID).Delete(&model.FollowEdge{})
	return res.RowsAffected > 0, Translate(res.Error)
}

// ListFollowerIDsPage 关注了 userID 的用户, 按 follower_id 游标分页
func ListFollowerIDsPage(ctx context.Context, tx *gorm.DB, userID, afterID string, limit int) ([]string, error) {
	ids := make([]string, 0, limit)
	err := tx.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("following_id = ? AND follower_id > ?", userID, afterID).
		Order("follower_id").
		Limit(limit).
		Pluck("follower_id", &ids).Error
	return ids, Translate(err)
}

// CountFollowers 粉丝数
func CountFollowers(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.FollowEdge{}).Where("following_id = ?", userID).Count(&count).Error
	return count, Translate(err)
}

// CountFollowing 关注数
func CountFollowing(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.FollowEdge{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, Translate(err)
}
