package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// StringSet 以JSON数组形式存储的字符串集合
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringSet: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

func (StringSet) GormDataType() string {
	return "text"
}

func (s StringSet) Sorted() []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// DocRef 指向一个带计数器的文档
type DocRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

func (r DocRef) String() string {
	return r.Collection + "/" + r.ID
}

const (
	CollectionVideos   = "videos"
	CollectionComments = "comments"
	CollectionUsers    = "users"
)

func VideoRef(id string) DocRef   { return DocRef{Collection: CollectionVideos, ID: id} }
func CommentRef(id string) DocRef { return DocRef{Collection: CollectionComments, ID: id} }
func UserRef(id string) DocRef    { return DocRef{Collection: CollectionUsers, ID: id} }

// 计数器字段名
const (
	FieldLikesCount     = "likesCount"
	FieldCommentsCount  = "commentsCount"
	FieldShareCount     = "shareCount"
	FieldBookmarkCount  = "bookmarkCount"
	FieldReplyCount     = "replyCount"
	FieldTotalVideos    = "totalVideos"
	FieldTotalLikes     = "totalLikes"
	FieldFollowersCount = "followersCount"
	FieldFollowingCount = "followingCount"
)
