package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"FoodTok.com/cmd/api/handlers"
	"FoodTok.com/cmd/api/router/authfunc"
	"FoodTok.com/cmd/api/router/flowlimit"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/dal/dbtest"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/retry"
	"FoodTok.com/pkg/utils"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type reply struct {
	Code    int64           `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	t  *testing.T
	h  *server.Hertz
	db *gorm.DB
}

func newAPI(t *testing.T) *apiFixture {
	utils.PasswordCost = bcrypt.MinCost
	gdb := dbtest.New(t)
	policy := &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	handlers.Init(gdb, counter.NewUpdater(gdb, policy, nil), nil)
	require.NoError(t, flowlimit.LoadRules(10000, Routes...))

	auth, err := authfunc.NewJWT("test-secret", time.Hour)
	require.NoError(t, err)
	h := server.New()
	Register(h, auth)
	return &apiFixture{t: t, h: h, db: gdb}
}

func (a *apiFixture) post(path, token string, body interface{}) *reply {
	raw, err := json.Marshal(body)
	require.NoError(a.t, err)
	headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
	if token != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	}
	w := ut.PerformRequest(a.h.Engine, "POST", path, &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, headers...)
	var r reply
	require.NoError(a.t, json.Unmarshal(w.Result().Body(), &r), string(w.Result().Body()))
	return &r
}

func (a *apiFixture) createUser(email string) string {
	r := a.post("/v1/user/create", "", map[string]string{"email": email, "password": "secret-pass", "displayName": "cook"})
	require.Equal(a.t, errno.StatusOK, r.Status, r.Message)
	var data struct {
		UID string `json:"uid"`
	}
	require.NoError(a.t, json.Unmarshal(r.Data, &data))
	require.NotEmpty(a.t, data.UID)
	return data.UID
}

func (a *apiFixture) login(email, password string) *reply {
	return a.post("/v1/user/login", "", map[string]string{"email": email, "password": password})
}

func (a *apiFixture) get(path, token string) *reply {
	var headers []ut.Header
	if token != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	}
	w := ut.PerformRequest(a.h.Engine, "GET", path, nil, headers...)
	var r reply
	require.NoError(a.t, json.Unmarshal(w.Result().Body(), &r), string(w.Result().Body()))
	return &r
}

func TestCallableOperations(t *testing.T) {
	a := newAPI(t)
	alice := a.createUser("alice@foodtok.com")
	bob := a.createUser("bob@foodtok.com")

	dup := a.post("/v1/user/create", "", map[string]string{"email": "alice@foodtok.com", "password": "secret-pass", "displayName": "again"})
	assert.Equal(t, errno.StatusAlreadyExists, dup.Status)
	bad := a.post("/v1/user/create", "", map[string]string{"email": "nope", "password": "secret-pass", "displayName": "x"})
	assert.Equal(t, errno.StatusInvalidArgument, bad.Status)

	assert.Equal(t, errno.StatusUnauthenticated, a.login("alice@foodtok.com", "wrong-pass").Status)
	lr := a.login("alice@foodtok.com", "secret-pass")
	require.Equal(t, errno.StatusOK, lr.Status, lr.Message)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(lr.Data, &tok))
	require.NotEmpty(t, tok.Token)

	r := a.post("/v1/relation/follow", "", map[string]string{"followingId": bob})
	assert.Equal(t, errno.StatusUnauthenticated, r.Status)

	r = a.post("/v1/relation/follow", tok.Token, map[string]string{"followingId": bob})
	require.Equal(t, errno.StatusOK, r.Status, r.Message)
	assert.JSONEq(t, `{"success":true}`, string(r.Data))
	u, err := db.GetUser(context.Background(), a.db, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.FollowersCount)

	assert.Equal(t, errno.StatusAlreadyExists, a.post("/v1/relation/follow", tok.Token, map[string]string{"followingId": bob}).Status)
	assert.Equal(t, errno.StatusInvalidArgument, a.post("/v1/relation/follow", tok.Token, map[string]string{"followingId": alice}).Status)
	assert.Equal(t, errno.StatusNotFound, a.post("/v1/relation/follow", tok.Token, map[string]string{"followingId": "ghost"}).Status)

	r = a.post("/v1/reconcile/user", tok.Token, map[string]string{"userId": bob})
	require.Equal(t, errno.StatusOK, r.Status, r.Message)
	assert.JSONEq(t, `{"totalLikes":0}`, string(r.Data))
	assert.Equal(t, errno.StatusNotFound, a.post("/v1/reconcile/user", tok.Token, map[string]string{"userId": "ghost"}).Status)

	r = a.post("/v1/reconcile/all", tok.Token, map[string]string{})
	require.Equal(t, errno.StatusOK, r.Status, r.Message)
	var all struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &all))
	assert.Len(t, all.Results, 2)

	r = a.get("/v1/user/info?userId="+bob, tok.Token)
	require.Equal(t, errno.StatusOK, r.Status, r.Message)
	var info struct {
		ID             string `json:"id"`
		Email          string `json:"email"`
		FollowersCount int64  `json:"followersCount"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &info))
	assert.Equal(t, bob, info.ID)
	assert.Empty(t, info.Email)
	assert.Equal(t, int64(1), info.FollowersCount)
	r = a.get("/v1/user/info", tok.Token)
	require.NoError(t, json.Unmarshal(r.Data, &info))
	assert.Equal(t, "alice@foodtok.com", info.Email)
	assert.Equal(t, errno.StatusNotFound, a.get("/v1/user/info?userId=ghost", tok.Token).Status)

	require.Equal(t, errno.StatusOK, a.post("/v1/relation/unfollow", tok.Token, map[string]string{"followingId": bob}).Status)
	assert.Equal(t, errno.StatusNotFound, a.post("/v1/relation/unfollow", tok.Token, map[string]string{"followingId": bob}).Status)
}

// /metrics 由 promhttp 流式写出, ut.PerformRequest 没有底层连接, 这里只检查路由是否注册
func TestMetricsRouteRegistered(t *testing.T) {
	a := newAPI(t)
	found := false
	for _, r := range a.h.Routes() {
		if r.Method == "GET" && r.Path == "/metrics" {
			found = true
		}
	}
	assert.True(t, found)

	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
