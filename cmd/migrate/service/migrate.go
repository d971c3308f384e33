package service

import (
	"context"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/tags"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type MigrateService struct {
	updater  *counter.Updater
	db       *gorm.DB
	pageSize int
}

func NewMigrateService(updater *counter.Updater, pageSize int) *MigrateService {
	if pageSize <= 0 || pageSize > constants.MaxWritesPerBatch {
		pageSize = constants.MaxWritesPerBatch
	}
	return &MigrateService{updater: updater, db: updater.DB(), pageSize: pageSize}
}

type Stats struct {
	Scanned   int `json:"scanned"`
	Updated   int `json:"updated"`
	Divergent int `json:"divergent"`
	Failed    int `json:"failed"`
}

func (s *MigrateService) eachVideoPage(ctx context.Context, fn func(videos []*model.Video) error) error {
	after := ""
	for {
		videos, err := db.ListVideosPage(ctx, s.db, after, s.pageSize)
		if err != nil {
			return errors.WithMessage(err, "list videos")
		}
		if len(videos) > 0 {
			if err := fn(videos); err != nil {
				return err
			}
		}
		if len(videos) < s.pageSize {
			return nil
		}
		after = videos[len(videos)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// BackfillTags 重新生成所有视频的标签, 只写入不一致的
func (s *MigrateService) BackfillTags(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.eachVideoPage(ctx, func(videos []*model.Video) error {
		for _, v := range videos {
			stats.Scanned++
			if tags.Equal(tags.ForVideo(v), v.Tags) {
				continue
			}
			changed := false
			_, err := s.updater.Execute(ctx, &counter.Op{
				Name: "migrate.tags",
				Fn: func(tx *counter.Tx) error {
					changed = false
					cur, err := db.GetVideo(tx.Context(), tx.DB(), v.ID)
					if err != nil {
						return err
					}
					computed := tags.ForVideo(cur)
					if tags.Equal(computed, cur.Tags) {
						return nil
					}
					changed = true
					return tx.Update(model.VideoRef(cur.ID), map[string]interface{}{"tags": model.StringSet(computed)})
				},
			})
			if err != nil {
				if errors.Is(err, errno.NotFoundErr) {
					continue
				}
				hlog.CtxErrorf(ctx, "backfill tags of video %s: %v", v.ID, err)
				stats.Failed++
				continue
			}
			if changed {
				stats.Updated++
			}
		}
		return nil
	})
	hlog.CtxInfof(ctx, "tag backfill: scanned=%d updated=%d failed=%d", stats.Scanned, stats.Updated, stats.Failed)
	return stats, err
}

// MigrateOwnerField 把旧的 userId 字段复制到 ownerId. 两个字段都有值但不一致的视频只记录日志
func (s *MigrateService) MigrateOwnerField(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.eachVideoPage(ctx, func(videos []*model.Video) error {
		owners := make(map[string]bool)
		for _, v := range videos {
			stats.Scanned++
			switch {
			case v.LegacyUserID == "":
				continue
			case v.OwnerID != "" && v.OwnerID != v.LegacyUserID:
				hlog.CtxWarnf(ctx, "video %s: ownerId %s differs from legacy userId %s, left unchanged", v.ID, v.OwnerID, v.LegacyUserID)
				stats.Divergent++
				continue
			case v.OwnerID != "":
				continue
			}
			copied := false
			_, err := s.updater.Execute(ctx, &counter.Op{
				Name: "migrate.owner",
				Fn: func(tx *counter.Tx) error {
					copied = false
					cur, err := db.GetVideo(tx.Context(), tx.DB(), v.ID)
					if err != nil {
						return err
					}
					if cur.OwnerID != "" || cur.LegacyUserID == "" {
						return nil
					}
					copied = true
					return tx.Update(model.VideoRef(cur.ID), map[string]interface{}{"owner_id": cur.LegacyUserID})
				},
			})
			if err != nil {
				if errors.Is(err, errno.NotFoundErr) {
					continue
				}
				hlog.CtxErrorf(ctx, "migrate owner of video %s: %v", v.ID, err)
				stats.Failed++
				continue
			}
			if copied {
				stats.Updated++
				owners[v.LegacyUserID] = true
			}
		}
		// 迁移前这些视频没有计入作者的聚合值
		repairs := make([]counter.Repair, 0, 2*len(owners))
		for owner := range owners {
			repairs = append(repairs,
				counter.Repair{Kind: model.KindUserTotalVideos, TargetID: owner},
				counter.Repair{Kind: model.KindUserTotalLikes, TargetID: owner},
			)
		}
		if len(repairs) > 0 {
			if err := s.updater.Enqueue(ctx, "owner field migrated", repairs...); err != nil {
				return errors.WithMessage(err, "enqueue owner recount")
			}
		}
		return nil
	})
	hlog.CtxInfof(ctx, "owner migration: scanned=%d copied=%d divergent=%d failed=%d", stats.Scanned, stats.Updated, stats.Divergent, stats.Failed)
	return stats, err
}
