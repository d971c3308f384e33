package service

import (
	"context"
	"fmt"

	"FoodTok.com/cmd/model"
	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/mq"
	"FoodTok.com/pkg/notify"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// checkCommentShape depth 只能是0或1, 并且 parentId 存在当且仅当 depth==1
func checkCommentShape(c *model.Comment) error {
	switch {
	case c.Depth == 0 && c.ParentID == "":
		return nil
	case c.Depth == 1 && c.ParentID != "" && c.ParentID != c.ID:
		return nil
	default:
		return errno.InvariantErr.WithMessage(fmt.Sprintf("comment %s has depth %d and parent %q", c.ID, c.Depth, c.ParentID))
	}
}

func (s *FanoutService) HandleComment(ctx context.Context, e *mq.ChangeEvent, p dispatcher.Params) error {
	switch e.Kind() {
	case mq.ChangeCreate:
		var c model.Comment
		if err := decode(e.After, &c); err != nil {
			return err
		}
		s.fillCommentIDs(&c, p)
		if err := checkCommentShape(&c); err != nil {
			return err
		}
		if c.IsReply() {
			return s.onReplyCreated(ctx, e.EventID, &c)
		}
		return s.onCommentCreated(ctx, e.EventID, &c)
	case mq.ChangeDelete:
		var c model.Comment
		if err := decode(e.Before, &c); err != nil {
			return err
		}
		s.fillCommentIDs(&c, p)
		return s.onCommentDeleted(ctx, e.EventID, &c)
	default:
		// 编辑评论内容不影响计数
		return nil
	}
}

func (s *FanoutService) fillCommentIDs(c *model.Comment, p dispatcher.Params) {
	c.ID = p["commentId"]
	if c.VideoID == "" {
		c.VideoID = p["videoId"]
	}
}

func (s *FanoutService) onCommentCreated(ctx context.Context, eventID string, c *model.Comment) error {
	var created *model.Notification
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "comment.create",
		EventKey: eventID,
		Repairs:  []counter.Repair{{Kind: model.KindVideoComments, TargetID: c.VideoID}},
		Fn: func(tx *counter.Tx) error {
			created = nil
			video, err := db.GetVideo(ctx, tx.DB(), c.VideoID)
			if err != nil {
				return err
			}
			if _, err := tx.Add(model.VideoRef(video.ID), model.FieldCommentsCount, 1); err != nil {
				return err
			}
			created, err = s.addNotification(tx, notify.Comment{
				RecipientID:  video.OwnerID,
				SourceUserID: c.UserID,
				VideoID:      video.ID,
				CommentID:    c.ID,
				Text:         c.Text,
			})
			return err
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "comment.create "+c.ID, res)
	if res.Applied {
		s.publish(ctx, created)
	}
	return nil
}

// onReplyCreated 父评论不存在或者不是一级评论时整个操作放弃
func (s *FanoutService) onReplyCreated(ctx context.Context, eventID string, c *model.Comment) error {
	var created *model.Notification
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "comment.reply",
		EventKey: eventID,
		Repairs:  []counter.Repair{{Kind: model.KindCommentReplies, TargetID: c.ParentID}},
		Fn: func(tx *counter.Tx) error {
			created = nil
			parent, err := db.GetComment(ctx, tx.DB(), c.ParentID)
			if err != nil {
				return err
			}
			if parent.Depth != 0 {
				return errno.InvariantErr.WithMessage(fmt.Sprintf("reply %s targets comment %s of depth %d", c.ID, parent.ID, parent.Depth))
			}
			if _, err := tx.Add(model.CommentRef(parent.ID), model.FieldReplyCount, 1); err != nil {
				return err
			}
			created, err = s.addNotification(tx, notify.CommentReply{
				RecipientID:     parent.UserID,
				SourceUserID:    c.UserID,
				VideoID:         c.VideoID,
				CommentID:       c.ID,
				ParentCommentID: parent.ID,
				Text:            c.Text,
			})
			return err
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "comment.reply "+c.ID, res)
	if res.Applied {
		s.publish(ctx, created)
	}
	return nil
}

// onCommentDeleted 在一个事务里删除点赞, 回复, 回复的点赞以及引用它们的通知, 并调整计数
func (s *FanoutService) onCommentDeleted(ctx context.Context, eventID string, c *model.Comment) error {
	repair := counter.Repair{Kind: model.KindVideoComments, TargetID: c.VideoID}
	if c.IsReply() {
		repair = counter.Repair{Kind: model.KindCommentReplies, TargetID: c.ParentID}
	}
	var removed []string
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "comment.delete",
		EventKey: eventID,
		Repairs:  []counter.Repair{repair},
		Fn: func(tx *counter.Tx) error {
			var err error
			if removed, err = db.DeleteCommentCascade(ctx, tx.DB(), c.ID); err != nil {
				return err
			}
			if !c.IsReply() {
				return s.decrementIfExists(tx, model.VideoRef(c.VideoID), model.FieldCommentsCount)
			}
			parent, err := db.GetComment(ctx, tx.DB(), c.ParentID)
			if isNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if parent.Depth != 0 {
				hlog.CtxWarnf(ctx, "reply %s had parent %s of depth %d, replyCount untouched", c.ID, parent.ID, parent.Depth)
				return nil
			}
			_, err = tx.Add(model.CommentRef(parent.ID), model.FieldReplyCount, -1)
			return err
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "comment.delete "+c.ID, res)
	if res.Applied {
		hlog.CtxInfof(ctx, "comment %s deleted with cascade over %d comment(s)", c.ID, len(removed))
	}
	return nil
}

// decrementIfExists 目标已经被删除时不做任何事
func (s *FanoutService) decrementIfExists(tx *counter.Tx, ref model.DocRef, field string) error {
	_, err := tx.Add(ref, field, -1)
	if isNotFound(err) {
		return nil
	}
	return err
}
