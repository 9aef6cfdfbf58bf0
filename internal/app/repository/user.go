package repository

import (
	"errors"

	"gorm.io/gorm"

	"ezrank_service/internal/app/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUserID(userID string) (*model.User, error) {
	return r.findOne("user_id = ?", userID)
}

func (r *UserRepository) FindByUserIDAndIdx(userID string, userIdx int64) (*model.User, error) {
	return r.findOne("user_id = ? AND user_idx = ?", userID, userIdx)
}

func (r *UserRepository) FindByNameAndEmail(userName, userEmail string) (*model.User, error) {
	return r.findOne("user_name = ? AND user_email = ?", userName, userEmail)
}

func (r *UserRepository) FindByUserIDAndEmail(userID, userEmail string) (*model.User, error) {
	return r.findOne("user_id = ? AND user_email = ?", userID, userEmail)
}

func (r *UserRepository) FindByEmail(userEmail string) (*model.User, error) {
	return r.findOne("user_email = ?", userEmail)
}

func (r *UserRepository) ExistsByUserID(userID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) ExistsByEmail(userEmail string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("user_email = ?", userEmail).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Insert(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) Save(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) Delete(user *model.User) error {
	return r.db.Delete(user).Error
}

func (r *UserRepository) findOne(query string, args ...any) (*model.User, error) {
	var user model.User
	err := r.db.Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
