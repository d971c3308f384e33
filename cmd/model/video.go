package model

import "time"

const (
	VideoStatusActive     = "active"
	VideoStatusDeleted    = "deleted"
	VideoStatusProcessing = "processing"

	PrivacyEveryone  = "everyone"
	PrivacyFollowers = "followers"
	PrivacyPrivate   = "private"
)

// Video 菜谱视频. OwnerID 是唯一的作者字段, LegacyUserID 只由迁移任务读取
type Video struct {
	ID              string    `gorm:"primaryKey;size:64" json:"id"`
	OwnerID         string    `gorm:"size:64;index" json:"ownerId"`
	LegacyUserID    string    `gorm:"size:64" json:"userId,omitempty"`
	Status          string    `gorm:"size:16;index;default:active" json:"status"`
	Privacy         string    `gorm:"size:16;default:everyone" json:"privacy"`
	Title           string    `gorm:"size:255" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	VideoURL        string    `gorm:"size:512" json:"videoUrl"`
	ThumbnailURL    string    `gorm:"size:512" json:"thumbnailUrl"`
	LikesCount      int64     `gorm:"not null;default:0" json:"likesCount"`
	CommentsCount   int64     `gorm:"not null;default:0" json:"commentsCount"`
	ShareCount      int64     `gorm:"not null;default:0" json:"shareCount"`
	BookmarkCount   int64     `gorm:"not null;default:0" json:"bookmarkCount"`
	Budget          *float64  `json:"budget,omitempty"`
	Calories        *float64  `json:"calories,omitempty"`
	PrepTimeMinutes *float64  `json:"prepTimeMinutes,omitempty"`
	Spiciness       int       `gorm:"not null;default:0" json:"spiciness"`
	Hashtags        StringSet `json:"hashtags"`
	Tags            StringSet `json:"tags"`
	Version         int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) IsActive() bool {
	return v.Status == "" || v.Status == VideoStatusActive
}

// VideoLike 点赞记录, 同时也是用户"喜欢"列表的反向引用
type VideoLike struct {
	ID        string    `gorm:"primaryKey;size:140" json:"id"`
	VideoID   string    `gorm:"size:64;index" json:"videoId"`
	UserID    string    `gorm:"size:64;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (VideoLike) TableName() string {
	return "video_likes"
}

func VideoLikeID(videoID, userID string) string {
	return videoID + "_" + userID
}
