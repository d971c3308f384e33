package model

import (
	"fmt"
	"time"
)

// ReconcileKind 标识一个可以从源数据重算的聚合值
type ReconcileKind string

const (
	KindUserTotalLikes  ReconcileKind = "users.totalLikes"
	KindUserTotalVideos ReconcileKind = "users.totalVideos"
	KindUserFollowers   ReconcileKind = "users.followersCount"
	KindUserFollowing   ReconcileKind = "users.followingCount"
	KindVideoLikes      ReconcileKind = "videos.likesCount"
	KindVideoComments   ReconcileKind = "videos.commentsCount"
	KindCommentLikes    ReconcileKind = "comments.likesCount"
	KindCommentReplies  ReconcileKind = "comments.replyCount"
	KindVideoLikeRefs   ReconcileKind = "videos.likeRefs"
)

// KindFor 返回计数字段对应的修复类型
func KindFor(ref DocRef, field string) ReconcileKind {
	return ReconcileKind(fmt.Sprintf("%s.%s", ref.Collection, field))
}

// ReconciliationTask 只追加不修改, 由之后的重算结果覆盖
type ReconciliationTask struct {
	ID         int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	TargetID   string        `gorm:"size:64;not null;index:idx_task_target" json:"targetId"`
	Kind       ReconcileKind `gorm:"size:64;not null;index:idx_task_target" json:"kind"`
	Expected   int64         `json:"expected"`
	Actual     int64         `json:"actual"`
	Reason     string        `gorm:"type:text" json:"reason"`
	EnqueuedAt time.Time     `gorm:"not null;index" json:"enqueuedAt"`
}

func (ReconciliationTask) TableName() string {
	return "reconciliation_tasks"
}

const (
	RepairSourceTask   = "task"
	RepairSourceSweep  = "sweep"
	RepairSourceManual = "manual"
)

// RepairRecord 记录一次重算, Changed=false 的记录只在处理队列任务时写入
type RepairRecord struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind      ReconcileKind `gorm:"size:64;not null;index:idx_repair_target" json:"kind"`
	TargetID  string        `gorm:"size:64;not null;index:idx_repair_target" json:"targetId"`
	OldValue  int64         `json:"oldValue"`
	NewValue  int64         `json:"newValue"`
	Changed   bool          `gorm:"not null" json:"changed"`
	Source    string        `gorm:"size:16" json:"source"`
	CheckedAt time.Time     `gorm:"not null;index" json:"checkedAt"`
}

func (RepairRecord) TableName() string {
	return "repair_records"
}

// ProcessedEvent 幂等性记录, 与业务写入处于同一事务
type ProcessedEvent struct {
	Key       string    `gorm:"column:event_key;primaryKey;size:255" json:"key"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}

// AllModels 需要自动迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Video{},
		&VideoLike{},
		&Comment{},
		&CommentLike{},
		&FollowEdge{},
		&Notification{},
		&ReconciliationTask{},
		&RepairRecord{},
		&ProcessedEvent{},
	}
}
