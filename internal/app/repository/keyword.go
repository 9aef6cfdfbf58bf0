package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"ezrank_service/internal/app/model"
)

type KeywordRepository struct {
	db *gorm.DB
}

func NewKeywordRepository(db *gorm.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// FindByPlaceAndName returns the keyword tracked under a place with an
// exact name match, or nil when none exists. No case folding or trimming:
// the crawler is expected to send the query string verbatim.
func (r *KeywordRepository) FindByPlaceAndName(placeIdx int64, name string) (*model.Keyword, error) {
	var keyword model.Keyword
	err := r.db.
		Where("place_idx = ? AND keyword_name = ?", placeIdx, name).
		Order("keyword_idx ASC").
		First(&keyword).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &keyword, nil
}

func (r *KeywordRepository) Insert(keyword *model.Keyword) error {
	return r.db.Create(keyword).Error
}

// TouchLastSeen refreshes the liveness timestamp of an already-known keyword.
func (r *KeywordRepository) TouchLastSeen(keywordIdx int64, now time.Time) error {
	return r.db.Model(&model.Keyword{}).
		Where("keyword_idx = ?", keywordIdx).
		Update("keyword_date", now).Error
}
