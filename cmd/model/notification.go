package model

import "time"

const (
	NotificationLike         = "like"
	NotificationComment      = "comment"
	NotificationFollow       = "follow"
	NotificationVideoPost    = "video_post"
	NotificationCommentReply = "comment_reply"
	NotificationCommentLike  = "commentLike"
)

type Notification struct {
	ID              string    `gorm:"primaryKey;size:160" json:"id"`
	RecipientID     string    `gorm:"size:64;index" json:"recipientId"`
	Type            string    `gorm:"size:32" json:"type"`
	SourceUserID    string    `gorm:"size:64" json:"sourceUserId"`
	VideoID         string    `gorm:"size:64;index" json:"videoId,omitempty"`
	CommentID       string    `gorm:"size:64;index" json:"commentId,omitempty"`
	ParentCommentID string    `gorm:"size:64;index" json:"parentCommentId,omitempty"`
	Preview         string    `gorm:"size:512" json:"preview,omitempty"`
	Read            bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
