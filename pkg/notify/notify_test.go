package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestBuildComment(t *testing.T) {
	n, err := Build(Comment{RecipientID: "owner", SourceUserID: "alice", VideoID: "v1", CommentID: "c1", Text: "tasty"}, now)
	require.NoError(t, err)
	assert.Equal(t, "comment_c1", n.ID)
	assert.Equal(t, model.NotificationComment, n.Type)
	assert.Equal(t, "owner", n.RecipientID)
	assert.Equal(t, "alice", n.SourceUserID)
	assert.Equal(t, "v1", n.VideoID)
	assert.Equal(t, "c1", n.CommentID)
	assert.Equal(t, "tasty", n.Preview)
	assert.False(t, n.Read)
	assert.Equal(t, now, n.CreatedAt)
}

func TestBuildSuppressesSelf(t *testing.T) {
	_, err := Build(Like{RecipientID: "u", SourceUserID: "u", VideoID: "v"}, now)
	assert.ErrorIs(t, err, ErrSelfNotification)
}

func TestBuildValidatesRequiredFields(t *testing.T) {
	cases := []Variant{
		Like{RecipientID: "a", SourceUserID: "b"},
		Comment{RecipientID: "a", SourceUserID: "b", VideoID: "v"},
		Follow{RecipientID: "a"},
		VideoPost{SourceUserID: "b", VideoID: "v"},
		CommentReply{RecipientID: "a", SourceUserID: "b", VideoID: "v", CommentID: "c"},
		CommentReply{RecipientID: "a", SourceUserID: "b", VideoID: "v", CommentID: "c", ParentCommentID: "c"},
		CommentLike{RecipientID: "a", SourceUserID: "b"},
	}
	for _, c := range cases {
		_, err := Build(c, now)
		assert.True(t, errors.Is(err, errno.RequestErr), "%T %+v", c, c)
	}
}

func TestBuildTruncatesPreview(t *testing.T) {
	text := strings.Repeat("é", 150)
	n, err := Build(CommentReply{RecipientID: "a", SourceUserID: "b", VideoID: "v", CommentID: "r", ParentCommentID: "p", Text: text}, now)
	require.NoError(t, err)
	assert.Equal(t, 100, len([]rune(n.Preview)))
	assert.Equal(t, "p", n.ParentCommentID)
	assert.Equal(t, "comment_reply_r", n.ID)
}

func TestDeterministicIDs(t *testing.T) {
	a, err := Build(CommentLike{RecipientID: "author", SourceUserID: "liker", CommentID: "c1"}, now)
	require.NoError(t, err)
	assert.Equal(t, CommentLikeID("c1", "liker"), a.ID)

	p1, _ := Build(VideoPost{RecipientID: "f1", SourceUserID: "o", VideoID: "v"}, now)
	p2, _ := Build(VideoPost{RecipientID: "f1", SourceUserID: "o", VideoID: "v"}, now.Add(time.Hour))
	assert.Equal(t, p1.ID, p2.ID)

	f1, _ := Build(Follow{RecipientID: "b", SourceUserID: "a"}, now)
	f2, _ := Build(Follow{RecipientID: "b", SourceUserID: "a"}, now)
	assert.NotEqual(t, f1.ID, f2.ID)
}

func TestBuildStripsMarkupFromPreview(t *testing.T) {
	n, err := Build(Comment{
		RecipientID: "owner", SourceUserID: "alice", VideoID: "v1", CommentID: "c2",
		Text: `<b>Mac & cheese</b> <a href="javascript:alert(1)">isn't</a> bad<script>x()</script>`,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Mac & cheese isn't bad", n.Preview)
}
