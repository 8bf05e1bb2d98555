package repo

import (
	"context"

	"gorm.io/gorm"

	"menu-catalog/internal/domain"
	"menu-catalog/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// InsertUser passwordHash 必须是已哈希的值
func (r *UserRepo) InsertUser(ctx context.Context, username, passwordHash string) (string, error) {
	u := domain.User{ID: utils.NewID(), Username: username, PasswordHash: passwordHash}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		return "", wrapErr("insert user", err)
	}
	return u.ID, nil
}

func (r *UserRepo) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrapErr("find user by id", err)
	}
	return &u, nil
}

func (r *UserRepo) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, wrapErr("find user by username", err)
	}
	return &u, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return wrapErr("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrapErr("update password", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	var us []domain.User
	if err := r.db.WithContext(ctx).Order("username").Find(&us).Error; err != nil {
		return nil, wrapErr("list users", err)
	}
	return nonNil(us), nil
}

func (r *UserRepo) DeleteUserByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrapErr("delete user", gorm.ErrRecordNotFound)
	}
	return nil
}
