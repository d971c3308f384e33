package model

import "time"

// FollowEdge 关注关系, ID 必须等于 followerId_followingId
type FollowEdge struct {
	ID          string    `gorm:"primaryKey;size:140" json:"id"`
	FollowerID  string    `gorm:"size:64;index" json:"followerId"`
	FollowingID string    `gorm:"size:64;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (FollowEdge) TableName() string {
	return "follow_edges"
}

func FollowEdgeID(followerID, followingID string) string {
	return followerID + "_" + followingID
}

func (e *FollowEdge) CanonicalID() string {
	return FollowEdgeID(e.FollowerID, e.FollowingID)
}
