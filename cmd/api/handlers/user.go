package handlers

import (
	"context"

	"FoodTok.com/cmd/user/service"
	"FoodTok.com/pkg/errno"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/pkg/errors"
)

func CreateUser(ctx context.Context, c *app.RequestContext) {
	var param CreateUserParam
	if err := c.Bind(&param); err != nil {
		SendResponse(c, errno.RequestErr.WithMessage(err.Error()), nil)
		return
	}
	uid, err := service.NewCreateUserService(ctx, gdb).CreateUser(&service.CreateUserRequest{
		Email:       param.Email,
		Password:    param.Password,
		DisplayName: param.DisplayName,
	})
	if err != nil {
		hlog.CtxErrorf(ctx, "service.CreateUser failed,original error:%v", errors.Cause(err))
		SendResponse(c, err, nil)
		return
	}
	SendResponse(c, errno.Success, utils.H{"uid": uid})
}

// LoginAuthenticator 供jwt中间件的 LoginHandler 调用
func LoginAuthenticator(ctx context.Context, c *app.RequestContext) (interface{}, error) {
	var param LoginParam
	if err := c.Bind(&param); err != nil {
		return nil, errno.RequestErr.WithMessage(err.Error())
	}
	user, err := service.NewLoginUserService(ctx, gdb).LoginUser(&service.LoginUserRequest{
		Email:    param.Email,
		Password: param.Password,
	})
	if err != nil {
		hlog.CtxInfof(ctx, "login %s failed: %v", param.Email, err)
		return nil, err
	}
	return user, nil
}

// UserInfo 返回用户资料和计数, 查看他人时不返回邮箱
func UserInfo(ctx context.Context, c *app.RequestContext) {
	var param UserInfoParam
	if err := c.Bind(&param); err != nil {
		SendResponse(c, errno.RequestErr.WithMessage(err.Error()), nil)
		return
	}
	caller, err := CurrentUserID(c)
	if err != nil {
		SendResponse(c, err, nil)
		return
	}
	if param.UserID == "" {
		param.UserID = caller
	}
	user, err := service.NewGetUserInfoService(ctx, gdb).GetUserInfo(param.UserID)
	if err != nil {
		SendResponse(c, err, nil)
		return
	}
	if user.ID != caller {
		user.Email = ""
	}
	SendResponse(c, errno.Success, user)
}
