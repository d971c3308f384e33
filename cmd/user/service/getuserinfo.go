package service

import (
	"context"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type GetUserInfoService struct {
	ctx context.Context
	db  *gorm.DB
}

func NewGetUserInfoService(ctx context.Context, gdb *gorm.DB) *GetUserInfoService {
	return &GetUserInfoService{ctx: ctx, db: gdb}
}

func (v *GetUserInfoService) GetUserInfo(userID string) (*model.User, error) {
	user, err := db.GetUser(v.ctx, v.db, userID)
	if err != nil {
		hlog.CtxInfof(v.ctx, "get user %s: %v", userID, err)
		return nil, errors.WithMessage(err, "dao.GetUser failed")
	}
	return user, nil
}
