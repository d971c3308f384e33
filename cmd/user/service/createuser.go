package service

import (
	"context"
	"strings"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/utils"
	"FoodTok.com/pkg/validator"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	DisplayName string `json:"displayName" validate:"required,max=128"`
}

type CreateUserService struct {
	ctx context.Context
	db  *gorm.DB
}

func NewCreateUserService(ctx context.Context, gdb *gorm.DB) *CreateUserService {
	return &CreateUserService{ctx: ctx, db: gdb}
}

// CreateUser 新账户的四个计数都从0开始, 返回新用户id
func (v *CreateUserService) CreateUser(req *CreateUserRequest) (string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validator.Struct(req); err != nil {
		return "", err
	}
	passWord, err := utils.Crypt(req.Password)
	if err != nil {
		return "", errors.WithMessage(err, "Password fail to crypt")
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: passWord,
	}
	if err := db.CreateUser(v.ctx, v.db, user); err != nil {
		return "", errors.WithMessage(err, "dao.CreateUser failed")
	}
	hlog.CtxInfof(v.ctx, "user %s created, email:%s", user.ID, user.Email)
	return user.ID, nil
}
