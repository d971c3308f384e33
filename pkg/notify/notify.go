// Package notify defines one variant per notification type. Each variant has
// a fixed set of required and optional fields which is validated before the
// notification is turned into a stored record.
package notify

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/utils"
	"FoodTok.com/pkg/validator"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// ErrSelfNotification 接收者和触发者相同, 通知被丢弃
var ErrSelfNotification = errors.New("notify: recipient is the source user")

// Variant 是六种通知之一
type Variant interface {
	Type() string
	recipient() string
	source() string
	fill(n *model.Notification)
}

// Publisher 把已经写入的通知推送给在线用户, 失败不影响写入
type Publisher interface {
	Publish(ctx context.Context, n *model.Notification) error
}

type Like struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	SourceUserID string `json:"sourceUserId" validate:"required"`
	VideoID      string `json:"videoId" validate:"required"`
}

func (Like) Type() string        { return model.NotificationLike }
func (v Like) recipient() string { return v.RecipientID }
func (v Like) source() string    { return v.SourceUserID }
func (v Like) fill(n *model.Notification) {
	n.ID = "like_" + v.VideoID + "_" + v.SourceUserID
	n.VideoID = v.VideoID
}

type Comment struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	SourceUserID string `json:"sourceUserId" validate:"required"`
	VideoID      string `json:"videoId" validate:"required"`
	CommentID    string `json:"commentId" validate:"required"`
	Text         string `json:"text"`
}

func (Comment) Type() string        { return model.NotificationComment }
func (v Comment) recipient() string { return v.RecipientID }
func (v Comment) source() string    { return v.SourceUserID }
func (v Comment) fill(n *model.Notification) {
	n.ID = "comment_" + v.CommentID
	n.VideoID = v.VideoID
	n.CommentID = v.CommentID
	n.Preview = v.Text
}

type Follow struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	SourceUserID string `json:"sourceUserId" validate:"required"`
}

func (Follow) Type() string        { return model.NotificationFollow }
func (v Follow) recipient() string { return v.RecipientID }
func (v Follow) source() string    { return v.SourceUserID }

// 取关不会删除关注通知, 再次关注会产生一条新的通知
func (v Follow) fill(n *model.Notification) {
	n.ID = "follow_" + uuid.NewString()
}

type VideoPost struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	SourceUserID string `json:"sourceUserId" validate:"required"`
	VideoID      string `json:"videoId" validate:"required"`
	Title        string `json:"title"`
}

func (VideoPost) Type() string        { return model.NotificationVideoPost }
func (v VideoPost) recipient() string { return v.RecipientID }
func (v VideoPost) source() string    { return v.SourceUserID }
func (v VideoPost) fill(n *model.Notification) {
	n.ID = "video_post_" + v.VideoID + "_" + v.RecipientID
	n.VideoID = v.VideoID
	n.Preview = v.Title
}

type CommentReply struct {
	RecipientID     string `json:"recipientId" validate:"required"`
	SourceUserID    string `json:"sourceUserId" validate:"required"`
	VideoID         string `json:"videoId" validate:"required"`
	CommentID       string `json:"commentId" validate:"required"`
	ParentCommentID string `json:"parentCommentId" validate:"required,nefield=CommentID"`
	Text            string `json:"text"`
}

func (CommentReply) Type() string        { return model.NotificationCommentReply }
func (v CommentReply) recipient() string { return v.RecipientID }
func (v CommentReply) source() string    { return v.SourceUserID }
func (v CommentReply) fill(n *model.Notification) {
	n.ID = "comment_reply_" + v.CommentID
	n.VideoID = v.VideoID
	n.CommentID = v.CommentID
	n.ParentCommentID = v.ParentCommentID
	n.Preview = v.Text
}

type CommentLike struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	SourceUserID string `json:"sourceUserId" validate:"required"`
	VideoID      string `json:"videoId"`
	CommentID    string `json:"commentId" validate:"required"`
}

func (CommentLike) Type() string        { return model.NotificationCommentLike }
func (v CommentLike) recipient() string { return v.RecipientID }
func (v CommentLike) source() string    { return v.SourceUserID }
func (v CommentLike) fill(n *model.Notification) {
	n.ID = CommentLikeID(v.CommentID, v.SourceUserID)
	n.VideoID = v.VideoID
	n.CommentID = v.CommentID
}

// CommentLikeID 取消点赞时用它删除对应的通知
func CommentLikeID(commentID, likerID string) string {
	return model.NotificationCommentLike + "_" + commentID + "_" + likerID
}

// Build 校验 v 并生成通知记录. 自己触发给自己的通知返回 ErrSelfNotification
func Build(v Variant, now time.Time) (*model.Notification, error) {
	if err := validator.Struct(v); err != nil {
		return nil, err
	}
	if v.recipient() == v.source() {
		return nil, ErrSelfNotification
	}
	n := &model.Notification{
		RecipientID:  v.recipient(),
		Type:         v.Type(),
		SourceUserID: v.source(),
		CreatedAt:    now.UTC(),
	}
	v.fill(n)
	n.Preview = utils.Truncate(plainText(n.Preview), constants.MaxPreviewRunes)
	return n, nil
}

var previewPolicy = bluemonday.StrictPolicy()

// plainText 去掉评论和标题中的html标签, 预览只保存纯文本
func plainText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(previewPolicy.Sanitize(s)))
}
