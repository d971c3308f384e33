package model

import "time"

// User 账户, 四个计数都是派生值, 只能由计数器和修复任务修改
type User struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Email          string    `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	DisplayName    string    `gorm:"size:128" json:"displayName"`
	TotalVideos    int64     `gorm:"not null;default:0" json:"totalVideos"`
	TotalLikes     int64     `gorm:"not null;default:0" json:"totalLikes"`
	FollowersCount int64     `gorm:"not null;default:0" json:"followersCount"`
	FollowingCount int64     `gorm:"not null;default:0" json:"followingCount"`
	Version        int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
