package service

import (
	"context"
	"strings"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/utils"
	"FoodTok.com/pkg/validator"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type LoginUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginUserService struct {
	ctx context.Context
	db  *gorm.DB
}

func NewLoginUserService(ctx context.Context, gdb *gorm.DB) *LoginUserService {
	return &LoginUserService{ctx: ctx, db: gdb}
}

// LoginUser 邮箱不存在和密码错误返回同一个错误
func (v *LoginUserService) LoginUser(req *LoginUserRequest) (*model.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	user, err := db.GetUserByEmail(v.ctx, v.db, req.Email)
	if errors.Is(err, errno.NotFoundErr) {
		return nil, errno.UnauthenticatedErr.WithMessage("wrong email or password")
	}
	if err != nil {
		return nil, errors.WithMessage(err, "dao.GetUserByEmail failed")
	}
	ok, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, errors.WithMessage(err, "verify password failed")
	}
	if !ok {
		return nil, errno.UnauthenticatedErr.WithMessage("wrong email or password")
	}
	return user, nil
}
