package handlers

import (
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/notify"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

var (
	gdb       *gorm.DB
	updater   *counter.Updater
	publisher notify.Publisher
)

// Init 注入处理函数使用的存储和通知通道
func Init(db *gorm.DB, u *counter.Updater, p notify.Publisher) {
	gdb = db
	updater = u
	publisher = p
}

type Response struct {
	Code    int64       `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SendResponse pack response
func SendResponse(c *app.RequestContext, err error, data interface{}) {
	Err := errno.ConvertErr(err)
	c.JSON(consts.StatusOK, Response{
		Code:    Err.ErrCode,
		Status:  Err.Status(),
		Message: Err.ErrMsg,
		Data:    data,
	})
}

// CurrentUserID jwt中间件写入的调用者id
func CurrentUserID(c *app.RequestContext) (string, error) {
	v, ok := c.Get(constants.IdentityKey)
	if !ok {
		return "", errno.UnauthenticatedErr
	}
	uid, ok := v.(string)
	if !ok || uid == "" {
		return "", errno.UnauthenticatedErr
	}
	return uid, nil
}

type CreateUserParam struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginParam struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RelationParam struct {
	FollowingID string `json:"followingId"`
}

type ReconcileUserParam struct {
	UserID string `json:"userId"`
}

type UserInfoParam struct {
	UserID string `query:"userId"`
}
