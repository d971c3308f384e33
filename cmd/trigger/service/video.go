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
	"FoodTok.com/pkg/search"
	"FoodTok.com/pkg/tags"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"
)

func (s *FanoutService) HandleVideo(ctx context.Context, e *mq.ChangeEvent, p dispatcher.Params) error {
	videoID := p["videoId"]
	var before, after *model.Video
	if e.HasBefore() {
		before = &model.Video{}
		if err := decode(e.Before, before); err != nil {
			return err
		}
		before.ID = videoID
	}
	if e.HasAfter() {
		after = &model.Video{}
		if err := decode(e.After, after); err != nil {
			return err
		}
		after.ID = videoID
	}

	switch e.Kind() {
	case mq.ChangeCreate:
		return s.onVideoCreated(ctx, e.EventID, after)
	case mq.ChangeUpdate:
		return s.onVideoUpdated(ctx, e.EventID, before, after)
	case mq.ChangeDelete:
		return s.onVideoDeleted(ctx, e.EventID, before)
	}
	return nil
}

func (s *FanoutService) onVideoCreated(ctx context.Context, eventID string, v *model.Video) error {
	counted := v.OwnerID != "" && v.IsActive()
	if v.OwnerID == "" {
		hlog.CtxWarnf(ctx, "video %s has no ownerId, owner counters skipped", v.ID)
	}
	op := &counter.Op{
		Name:     "video.create",
		EventKey: eventID,
		Fn: func(tx *counter.Tx) error {
			if !counted {
				return nil
			}
			_, err := tx.Add(model.UserRef(v.OwnerID), model.FieldTotalVideos, 1)
			return err
		},
	}
	if counted {
		op.Repairs = []counter.Repair{{Kind: model.KindUserTotalVideos, TargetID: v.OwnerID}}
	}
	// 没有计数要改时也写入事件记录, 重复投递不会再次同步标签和推送通知
	res, err := s.updater.Execute(ctx, op)
	if err != nil {
		return err
	}
	if res.Duplicate {
		return nil
	}
	logDegraded(ctx, "video.create "+v.ID, res)

	s.syncTags(ctx, v.ID)
	s.indexVideo(ctx, v.ID)
	if counted {
		s.fanOutVideoPost(ctx, v)
	}
	return nil
}

func (s *FanoutService) onVideoUpdated(ctx context.Context, eventID string, before, after *model.Video) error {
	wasActive, isActive := before.IsActive(), after.IsActive()

	switch {
	case before.OwnerID != after.OwnerID:
		// 作者变化只可能来自迁移, 两边都交给修复任务重算
		s.enqueueOwnerRecount(ctx, "video "+after.ID+" changed owner", before.OwnerID, after.OwnerID)
	case after.OwnerID == "":
		hlog.CtxWarnf(ctx, "video %s has no ownerId, owner counters skipped", after.ID)
	case !wasActive && isActive:
		res, err := s.updater.Execute(ctx, &counter.Op{
			Name:     "video.activate",
			EventKey: eventID,
			Repairs: []counter.Repair{
				{Kind: model.KindUserTotalVideos, TargetID: after.OwnerID},
				{Kind: model.KindUserTotalLikes, TargetID: after.OwnerID},
			},
			Fn: func(tx *counter.Tx) error {
				if _, err := tx.Add(model.UserRef(after.OwnerID), model.FieldTotalVideos, 1); err != nil {
					return err
				}
				_, err := tx.Add(model.UserRef(after.OwnerID), model.FieldTotalLikes, after.LikesCount)
				return err
			},
		})
		if err != nil {
			return err
		}
		logDegraded(ctx, "video.activate "+after.ID, res)
		if before.Status == model.VideoStatusProcessing {
			s.fanOutVideoPost(ctx, after)
		}
	case wasActive && !isActive:
		if err := s.retireVideo(ctx, eventID, before); err != nil {
			return err
		}
	case wasActive && isActive && before.LikesCount != after.LikesCount:
		if err := s.applyLikesChange(ctx, eventID, before, after); err != nil {
			return err
		}
	}

	if tagInputsChanged(before, after) || !tags.Equal(tags.ForVideo(after), after.Tags) {
		s.syncTags(ctx, after.ID)
	}
	if searchFieldsChanged(before, after) {
		s.indexVideo(ctx, after.ID)
	}
	return nil
}

// applyLikesChange 作者 totalLikes += after-before. 事务内视频当前的 likesCount 必须等于 after,
// 否则说明事件已经过期, 重试耗尽后交给修复任务
func (s *FanoutService) applyLikesChange(ctx context.Context, eventID string, before, after *model.Video) error {
	res, err := s.updater.ApplyDelta(ctx, counter.Delta{
		Target:   model.UserRef(after.OwnerID),
		Field:    model.FieldTotalLikes,
		Amount:   after.LikesCount - before.LikesCount,
		EventKey: eventID,
		Precondition: func(tx *counter.Tx) error {
			current, err := tx.Read(model.VideoRef(after.ID), model.FieldLikesCount)
			if err != nil {
				return err
			}
			if current != after.LikesCount {
				return errno.ConflictErr.WithMessage(fmt.Sprintf("video %s likesCount is %d, event saw %d", after.ID, current, after.LikesCount))
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "video.likes "+after.ID, res)
	return nil
}

func (s *FanoutService) onVideoDeleted(ctx context.Context, eventID string, before *model.Video) error {
	if before.IsActive() && before.OwnerID != "" {
		return s.retireVideo(ctx, eventID, before)
	}
	s.cleanupLikeRefs(ctx, before.ID)
	s.removeFromIndex(ctx, before.ID)
	return nil
}

// retireVideo 视频被删除或状态变为非active: 作者计数扣除, 清理点赞引用, 从搜索中移除
func (s *FanoutService) retireVideo(ctx context.Context, eventID string, before *model.Video) error {
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "video.retire",
		EventKey: eventID,
		Repairs: []counter.Repair{
			{Kind: model.KindUserTotalVideos, TargetID: before.OwnerID},
			{Kind: model.KindUserTotalLikes, TargetID: before.OwnerID},
		},
		Fn: func(tx *counter.Tx) error {
			if _, err := tx.Add(model.UserRef(before.OwnerID), model.FieldTotalVideos, -1); err != nil {
				return err
			}
			_, err := tx.Add(model.UserRef(before.OwnerID), model.FieldTotalLikes, -before.LikesCount)
			return err
		},
	})
	if err != nil {
		return err
	}
	logDegraded(ctx, "video.retire "+before.ID, res)
	s.cleanupLikeRefs(ctx, before.ID)
	s.removeFromIndex(ctx, before.ID)
	return nil
}

// cleanupLikeRefs 分页删除视频的点赞记录, 失败时入队修复任务
func (s *FanoutService) cleanupLikeRefs(ctx context.Context, videoID string) {
	total := int64(0)
	for {
		var deleted int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ids, err := db.ListVideoLikeIDs(ctx, tx, videoID, s.chunkSize)
			if err != nil {
				return err
			}
			deleted, err = db.DeleteVideoLikes(ctx, tx, ids)
			return err
		})
		if err != nil {
			hlog.CtxErrorf(ctx, "cleanup likes of video %s failed after %d: %v", videoID, total, err)
			if qerr := s.updater.Enqueue(ctx, "like cleanup failed: "+err.Error(), counter.Repair{Kind: model.KindVideoLikeRefs, TargetID: videoID}); qerr != nil {
				hlog.CtxErrorf(ctx, "enqueue like cleanup for %s: %v", videoID, qerr)
			}
			return
		}
		total += deleted
		if deleted < int64(s.chunkSize) {
			break
		}
	}
	if total > 0 {
		hlog.CtxInfof(ctx, "removed %d like reference(s) of video %s", total, videoID)
	}
}

func (s *FanoutService) enqueueOwnerRecount(ctx context.Context, reason string, owners ...string) {
	repairs := make([]counter.Repair, 0, 2*len(owners))
	for _, owner := range owners {
		if owner == "" {
			continue
		}
		repairs = append(repairs,
			counter.Repair{Kind: model.KindUserTotalVideos, TargetID: owner},
			counter.Repair{Kind: model.KindUserTotalLikes, TargetID: owner},
		)
	}
	if err := s.updater.Enqueue(ctx, reason, repairs...); err != nil {
		hlog.CtxErrorf(ctx, "%s: enqueue recount failed: %v", reason, err)
	}
}

// syncTags 标签与属性不一致时才写入, 因此它引起的更新事件不会再次写入
func (s *FanoutService) syncTags(ctx context.Context, videoID string) {
	_, err := s.updater.Execute(ctx, &counter.Op{
		Name: "video.tags",
		Fn: func(tx *counter.Tx) error {
			v, err := db.GetVideo(ctx, tx.DB(), videoID)
			if isNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			computed := tags.ForVideo(v)
			if tags.Equal(computed, v.Tags) {
				return nil
			}
			return tx.Update(model.VideoRef(videoID), map[string]interface{}{"tags": model.StringSet(computed)})
		},
	})
	if err != nil {
		hlog.CtxErrorf(ctx, "sync tags of video %s: %v", videoID, err)
	}
}

func (s *FanoutService) indexVideo(ctx context.Context, videoID string) {
	v, err := db.GetVideo(ctx, s.db, videoID)
	if err != nil {
		hlog.CtxWarnf(ctx, "index video %s: %v", videoID, err)
		return
	}
	if !v.IsActive() {
		s.removeFromIndex(ctx, videoID)
		return
	}
	if err := s.indexer.IndexVideo(ctx, search.DocumentFromVideo(v, v.Tags)); err != nil {
		hlog.CtxWarnf(ctx, "index video %s: %v", videoID, err)
	}
}

func (s *FanoutService) removeFromIndex(ctx context.Context, videoID string) {
	if err := s.indexer.DeleteVideo(ctx, videoID); err != nil {
		hlog.CtxWarnf(ctx, "remove video %s from index: %v", videoID, err)
	}
}

// fanOutVideoPost 分批通知作者的所有粉丝, 每批一个事务, 单批失败不影响其它批次
func (s *FanoutService) fanOutVideoPost(ctx context.Context, v *model.Video) {
	if v.Privacy == model.PrivacyPrivate {
		return
	}
	sent, cursor := 0, ""
	for {
		followers, err := db.ListFollowerIDsPage(ctx, s.db, v.OwnerID, cursor, s.chunkSize)
		if err != nil {
			hlog.CtxErrorf(ctx, "video_post %s: list followers after %q: %v", v.ID, cursor, err)
			return
		}
		if len(followers) == 0 {
			break
		}
		cursor = followers[len(followers)-1]

		batch := make([]*model.Notification, 0, len(followers))
		for _, follower := range followers {
			n, err := notify.Build(notify.VideoPost{
				RecipientID:  follower,
				SourceUserID: v.OwnerID,
				VideoID:      v.ID,
				Title:        v.Title,
			}, s.now())
			if err != nil {
				continue
			}
			batch = append(batch, n)
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return db.CreateNotifications(ctx, tx, batch)
		})
		if err != nil {
			hlog.CtxErrorf(ctx, "video_post %s: write batch of %d failed: %v", v.ID, len(batch), err)
		} else {
			sent += len(batch)
			s.publish(ctx, batch...)
		}
		if len(followers) < s.chunkSize {
			break
		}
	}
	hlog.CtxInfof(ctx, "video_post %s: notified %d follower(s) of %s", v.ID, sent, v.OwnerID)
}

func tagInputsChanged(before, after *model.Video) bool {
	return !floatEqual(before.Budget, after.Budget) ||
		!floatEqual(before.Calories, after.Calories) ||
		!floatEqual(before.PrepTimeMinutes, after.PrepTimeMinutes) ||
		before.Spiciness != after.Spiciness ||
		!tags.Equal(before.Hashtags, after.Hashtags)
}

func searchFieldsChanged(before, after *model.Video) bool {
	return before.Title != after.Title ||
		before.Description != after.Description ||
		before.Privacy != after.Privacy ||
		before.Status != after.Status ||
		before.OwnerID != after.OwnerID ||
		!tags.Equal(before.Tags, after.Tags) ||
		!tags.Equal(before.Hashtags, after.Hashtags)
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
