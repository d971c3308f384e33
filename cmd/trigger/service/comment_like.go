package service

import (
	"context"

	"FoodTok.com/cmd/model"
	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/mq"
	"FoodTok.com/pkg/notify"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

func (s *FanoutService) HandleCommentLike(ctx context.Context, e *mq.ChangeEvent, p dispatcher.Params) error {
	videoID, commentID, likerID := p["videoId"], p["commentId"], p["userId"]
	switch e.Kind() {
	case mq.ChangeCreate:
		var created *model.Notification
		res, err := s.updater.Execute(ctx, &counter.Op{
			Name:     "commentLike.add",
			EventKey: e.EventID,
			Repairs:  []counter.Repair{{Kind: model.KindCommentLikes, TargetID: commentID}},
			Fn: func(tx *counter.Tx) error {
				created = nil
				comment, err := db.GetComment(ctx, tx.DB(), commentID)
				if err != nil {
					return err
				}
				if _, err := tx.Add(model.CommentRef(comment.ID), model.FieldLikesCount, 1); err != nil {
					return err
				}
				created, err = s.addNotification(tx, notify.CommentLike{
					RecipientID:  comment.UserID,
					SourceUserID: likerID,
					VideoID:      videoID,
					CommentID:    comment.ID,
				})
				return err
			},
		})
		if err != nil {
			return err
		}
		logDegraded(ctx, "commentLike.add "+commentID, res)
		if res.Applied {
			s.publish(ctx, created)
		}
		return nil
	case mq.ChangeDelete:
		res, err := s.updater.Execute(ctx, &counter.Op{
			Name:     "commentLike.remove",
			EventKey: e.EventID,
			Repairs:  []counter.Repair{{Kind: model.KindCommentLikes, TargetID: commentID}},
			Fn: func(tx *counter.Tx) error {
				// 评论被删除时点赞已经随级联删除
				if err := s.decrementIfExists(tx, model.CommentRef(commentID), model.FieldLikesCount); err != nil {
					return err
				}
				return db.DeleteNotification(ctx, tx.DB(), notify.CommentLikeID(commentID, likerID))
			},
		})
		if err != nil {
			return err
		}
		logDegraded(ctx, "commentLike.remove "+commentID, res)
		return nil
	default:
		hlog.CtxDebugf(ctx, "ignore update on comment like %s_%s", commentID, likerID)
		return nil
	}
}
