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

// HandleVideoLike 维护 likesCount. 作者的 totalLikes 由随后的视频更新事件维护
func (s *FanoutService) HandleVideoLike(ctx context.Context, e *mq.ChangeEvent, p dispatcher.Params) error {
	videoID, likerID := p["videoId"], p["userId"]
	var delta int64
	switch e.Kind() {
	case mq.ChangeCreate:
		delta = 1
	case mq.ChangeDelete:
		delta = -1
	default:
		return nil
	}

	var (
		created       *model.Notification
		before, after int64
	)
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "videoLike",
		EventKey: e.EventID,
		Repairs:  []counter.Repair{{Kind: model.KindVideoLikes, TargetID: videoID}},
		Fn: func(tx *counter.Tx) error {
			created = nil
			video, err := db.GetVideo(ctx, tx.DB(), videoID)
			if isNotFound(err) && delta < 0 {
				return nil
			}
			if err != nil {
				return err
			}
			before = video.LikesCount
			if after, err = tx.Add(model.VideoRef(videoID), model.FieldLikesCount, delta); err != nil {
				return err
			}
			if delta < 0 {
				return nil
			}
			created, err = s.addNotification(tx, notify.Like{
				RecipientID:  video.OwnerID,
				SourceUserID: likerID,
				VideoID:      videoID,
			})
			return err
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "videoLike "+videoID, res)
	if !res.Applied {
		return nil
	}
	s.publish(ctx, created)
	if before != after {
		s.emitLikesChanged(ctx, e.EventID, videoID, before, after)
	}
	return nil
}

// emitLikesChanged 发布视频的更新事件, 前后快照使用事务内读写的值.
// 事件id由点赞事件派生, 重复投递会被去重
func (s *FanoutService) emitLikesChanged(ctx context.Context, eventID, videoID string, before, after int64) {
	if s.emitter == nil {
		return
	}
	video, err := db.GetVideo(ctx, s.db, videoID)
	if err != nil {
		hlog.CtxWarnf(ctx, "emit likes change for %s: %v", videoID, err)
		return
	}
	old, cur := *video, *video
	old.LikesCount, cur.LikesCount = before, after
	event, err := mq.NewChangeEvent(eventID+":likes", "videos/"+videoID, &old, &cur)
	if err != nil {
		hlog.CtxWarnf(ctx, "emit likes change for %s: %v", videoID, err)
		return
	}
	if err := s.emitter.PublishChangeEvent(ctx, event); err != nil {
		// 作者总获赞数会由修复任务重算
		hlog.CtxWarnf(ctx, "emit likes change for %s: %v", videoID, err)
		if qerr := s.updater.Enqueue(ctx, "likes change not emitted", counter.Repair{Kind: model.KindUserTotalLikes, TargetID: video.OwnerID}); qerr != nil {
			hlog.CtxErrorf(ctx, "enqueue totalLikes repair for %s: %v", video.OwnerID, qerr)
		}
	}
}
