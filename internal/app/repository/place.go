package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"ezrank_service/internal/app/model"
)

type PlaceRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// FindByUserAndPlaceID returns the place tracked by a user under the
// crawler's external id, or nil when none exists. Ordered by place_idx so
// that, should duplicates ever exist, the earliest row keeps being reused.
func (r *PlaceRepository) FindByUserAndPlaceID(userIdx, placeID int64) (*model.Place, error) {
	var place model.Place
	err := r.db.
		Where("user_idx = ? AND place_id = ?", userIdx, placeID).
		Order("place_idx ASC").
		First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

func (r *PlaceRepository) Insert(place *model.Place) error {
	return r.db.Create(place).Error
}

// TouchLastSeen refreshes the liveness timestamp of an already-known place.
func (r *PlaceRepository) TouchLastSeen(placeIdx int64, now time.Time) error {
	return r.db.Model(&model.Place{}).
		Where("place_idx = ?", placeIdx).
		Update("place_date", now).Error
}
