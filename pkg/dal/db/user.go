package db

import (
	"context"
	"errors"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/errno"
	"gorm.io/gorm"
)

func CreateUser(ctx context.Context, tx *gorm.DB, user *model.User) error {
	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errno.AlreadyExistsErr.WithMessage("email already registered")
		}
		return Translate(err)
	}
	return nil
}

func GetUser(ctx context.Context, tx *gorm.DB, userID string) (*model.User, error) {
	var user model.User
	if err := tx.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.NotFoundErr.WithMessage("user " + userID + " not found")
		}
		return nil, Translate(err)
	}
	return &user, nil
}

func GetUserByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.User, error) {
	var user model.User
	if err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.NotFoundErr.WithMessage("user not found")
		}
		return nil, Translate(err)
	}
	return &user, nil
}

func UserExists(ctx context.Context, tx *gorm.DB, userID string) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, Translate(err)
	}
	return count > 0, nil
}

// ListUserIDsPage 按id游标分页
func ListUserIDsPage(ctx context.Context, tx *gorm.DB, afterID string, limit int) ([]string, error) {
	ids := make([]string, 0, limit)
	err := tx.WithContext(ctx).Model(&model.User{}).Where("id > ?", afterID).Order("id").Limit(limit).Pluck("id", &ids).Error
	return ids, Translate(err)
}
