package db

import (
	"context"
	"errors"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	"gorm.io/gorm"
)

func GetComment(ctx context.Context, tx *gorm.DB, commentID string) (*model.Comment, error) {
	var comment model.Comment
	if err := tx.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.NotFoundErr.WithMessage("comment " + commentID + " not found")
		}
		return nil, Translate(err)
	}
	return &comment, nil
}

func CreateComment(ctx context.Context, tx *gorm.DB, comment *model.Comment) error {
	return Translate(tx.WithContext(ctx).Create(comment).Error)
}

// CountTopLevelComments 视频下的一级评论数
func CountTopLevelComments(ctx context.Context, tx *gorm.DB, videoID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Comment{}).Where("video_id = ? AND depth = 0", videoID).Count(&count).Error
	return count, Translate(err)
}

func CountReplies(ctx context.Context, tx *gorm.DB, parentID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Comment{}).Where("parent_id = ? AND depth = 1", parentID).Count(&count).Error
	return count, Translate(err)
}

func CreateCommentLike(ctx context.Context, tx *gorm.DB, like *model.CommentLike) error {
	if like.ID == "" {
		like.ID = model.CommentLikeID(like.CommentID, like.UserID)
	}
	return Translate(tx.WithContext(ctx).Create(like).Error)
}

func CountCommentLikes(ctx context.Context, tx *gorm.DB, commentID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, Translate(err)
}

// DeleteCommentCascade 删除评论本身, 它的回复, 以上所有评论的点赞以及引用它们的通知.
// 调用方负责把 tx 放在同一个事务里
func DeleteCommentCascade(ctx context.Context, tx *gorm.DB, commentID string) (removed []string, err error) {
	tx = tx.WithContext(ctx)
	var replyIDs []string
	if err = tx.Model(&model.Comment{}).Where("parent_id = ?", commentID).Pluck("id", &replyIDs).Error; err != nil {
		return nil, Translate(err)
	}
	ids := append([]string{commentID}, replyIDs...)
	if err = tx.Where("comment_id IN ?", ids).Delete(&model.CommentLike{}).Error; err != nil {
		return nil, Translate(err)
	}
	if err = tx.Where("comment_id IN ? OR parent_comment_id IN ?", ids, ids).Delete(&model.Notification{}).Error; err != nil {
		return nil, Translate(err)
	}
	if err = tx.Where("id IN ?", ids).Delete(&model.Comment{}).Error; err != nil {
		return nil, Translate(err)
	}
	return ids, nil
}
