package db

import (
	"context"
	"errors"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	"gorm.io/gorm"
)

func GetVideo(ctx context.Context, tx *gorm.DB, videoID string) (*model.Video, error) {
	var video model.Video
	if err := tx.WithContext(ctx).Where("id = ?", videoID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.NotFoundErr.WithMessage("video " + videoID + " not found")
		}
		return nil, Translate(err)
	}
	return &video, nil
}

func CreateVideo(ctx context.Context, tx *gorm.DB, video *model.Video) error {
	return Translate(tx.WithContext(ctx).Create(video).Error)
}

// ListVideosPage 按id游标分页
func ListVideosPage(ctx context.Context, tx *gorm.DB, afterID string, limit int) ([]*model.Video, error) {
	videos := make([]*model.Video, 0, limit)
	err := tx.WithContext(ctx).Where("id > ?", afterID).Order("id").Limit(limit).Find(&videos).Error
	return videos, Translate(err)
}

// SumActiveLikes 作者所有有效视频的点赞数之和
func SumActiveLikes(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	var sum int64
	err := tx.WithContext(ctx).Model(&model.Video{}).
		Select("COALESCE(SUM(likes_count), 0)").
		Where("owner_id = ? AND (status = ? OR status = '')", ownerID, model.VideoStatusActive).
		Scan(&sum).Error
	return sum, Translate(err)
}

func CountActiveVideos(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Video{}).
		Where("owner_id = ? AND (status = ? OR status = '')", ownerID, model.VideoStatusActive).
		Count(&count).Error
	return count, Translate(err)
}

func CreateVideoLike(ctx context.Context, tx *gorm.DB, like *model.VideoLike) error {
	if like.ID == "" {
		like.ID = model.VideoLikeID(like.VideoID, like.UserID)
	}
	return Translate(tx.WithContext(ctx).Create(like).Error)
}

func DeleteVideoLike(ctx context.Context, tx *gorm.DB, videoID, userID string) error {
	return Translate(tx.WithContext(ctx).Where("id = ?", model.VideoLikeID(videoID, userID)).Delete(&model.VideoLike{}).Error)
}

func CountVideoLikes(ctx context.Context, tx *gorm.DB, videoID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.VideoLike{}).Where("video_id = ?", videoID).Count(&count).Error
	return count, Translate(err)
}

// ListVideoLikeIDs 每次取一页, 删除后再取下一页
func ListVideoLikeIDs(ctx context.Context, tx *gorm.DB, videoID string, limit int) ([]string, error) {
	ids := make([]string, 0, limit)
	err := tx.WithContext(ctx).Model(&model.VideoLike{}).
		Where("video_id = ?", videoID).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, Translate(err)
}

func DeleteVideoLikes(ctx context.Context, tx *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&model.VideoLike{})
	return res.RowsAffected, Translate(res.Error)
}
