package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var counterColumns = map[string]map[string]string{
	model.CollectionVideos: {
		model.FieldLikesCount:    "likes_count",
		model.FieldCommentsCount: "comments_count",
		model.FieldShareCount:    "share_count",
		model.FieldBookmarkCount: "bookmark_count",
	},
	model.CollectionComments: {
		model.FieldLikesCount: "likes_count",
		model.FieldReplyCount: "reply_count",
	},
	model.CollectionUsers: {
		model.FieldTotalVideos:    "total_videos",
		model.FieldTotalLikes:     "total_likes",
		model.FieldFollowersCount: "followers_count",
		model.FieldFollowingCount: "following_count",
	},
}

func counterColumn(ref model.DocRef, field string) (string, error) {
	cols, ok := counterColumns[ref.Collection]
	if !ok {
		return "", errno.RequestErr.WithMessage("unknown collection " + ref.Collection)
	}
	col, ok := cols[field]
	if !ok {
		return "", errno.RequestErr.WithMessage(fmt.Sprintf("unknown counter %s.%s", ref.Collection, field))
	}
	return col, nil
}

// IsCounter reports whether field is a counter of the referenced collection.
func IsCounter(ref model.DocRef, field string) bool {
	_, err := counterColumn(ref, field)
	return err == nil
}

type counterRow struct {
	Value   int64
	Version int64
}

// ReadCounter 读取计数当前值与文档版本号
func ReadCounter(ctx context.Context, tx *gorm.DB, ref model.DocRef, field string) (value, version int64, err error) {
	col, err := counterColumn(ref, field)
	if err != nil {
		return 0, 0, err
	}
	var row counterRow
	res := tx.WithContext(ctx).Table(ref.Collection).
		Select(col+" AS value, version").
		Where("id = ?", ref.ID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, 0, Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, 0, errno.NotFoundErr.WithMessage(ref.String() + " not found")
	}
	return row.Value, row.Version, nil
}

// ReadVersion 读取文档版本号
func ReadVersion(ctx context.Context, tx *gorm.DB, ref model.DocRef) (int64, error) {
	var versions []int64
	if err := tx.WithContext(ctx).Table(ref.Collection).Where("id = ?", ref.ID).Limit(1).Pluck("version", &versions).Error; err != nil {
		return 0, Translate(err)
	}
	if len(versions) == 0 {
		return 0, errno.NotFoundErr.WithMessage(ref.String() + " not found")
	}
	return versions[0], nil
}

// CompareAndSwapCounter 只有版本号未变化时才写入
func CompareAndSwapCounter(ctx context.Context, tx *gorm.DB, ref model.DocRef, field string, version, value int64) error {
	col, err := counterColumn(ref, field)
	if err != nil {
		return err
	}
	return UpdateWithVersion(ctx, tx, ref, version, map[string]interface{}{col: value})
}

// UpdateWithVersion 乐观锁更新任意列, 版本号不匹配时返回 errno.ConflictErr
func UpdateWithVersion(ctx context.Context, tx *gorm.DB, ref model.DocRef, version int64, values map[string]interface{}) error {
	updates := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	res := tx.WithContext(ctx).Table(ref.Collection).
		Where("id = ? AND version = ?", ref.ID, version).
		Updates(updates)
	if res.Error != nil {
		return Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errno.ConflictErr.WithMessage(fmt.Sprintf("%s changed since version %d", ref, version))
	}
	return nil
}

// Translate 把驱动层的冲突类错误归类为可重试错误
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", errno.ConflictErr, err)
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return fmt.Errorf("%w: %v", errno.ConflictErr, err)
		case 1062:
			return fmt.Errorf("%w: %v", errno.ConflictErr, err)
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %v", errno.TransientErr, err)
	}
	return err
}
