package model

import "time"

// Comment depth 0 为一级评论, depth 1 为回复, 不支持更深的嵌套
type Comment struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	VideoID    string    `gorm:"size:64;index" json:"videoId"`
	UserID     string    `gorm:"size:64;index" json:"userId"`
	ParentID   string    `gorm:"size:64;index" json:"parentId,omitempty"`
	Depth      int       `gorm:"not null;default:0" json:"depth"`
	Text       string    `gorm:"type:text" json:"text"`
	LikesCount int64     `gorm:"not null;default:0" json:"likesCount"`
	ReplyCount int64     `gorm:"not null;default:0" json:"replyCount"`
	Version    int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) IsReply() bool {
	return c.Depth == 1
}

type CommentLike struct {
	ID        string    `gorm:"primaryKey;size:140" json:"id"`
	CommentID string    `gorm:"size:64;index" json:"commentId"`
	VideoID   string    `gorm:"size:64" json:"videoId"`
	UserID    string    `gorm:"size:64;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}

func CommentLikeID(commentID, userID string) string {
	return commentID + "_" + userID
}
