package repository

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"ezrank_service/internal/app/model"
)

type RankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) *RankRepository {
	return &RankRepository{db: db}
}

// RankRow is one rank observation joined with its keyword and place, as
// returned to the owning user.
type RankRow struct {
	RankIdx      int64     `json:"rank_idx"`
	SearchQuery  string    `json:"search_query"`
	PlaceID      int64     `json:"place_id"`
	RankName     string    `json:"rank_name"`
	RankPosition int       `json:"rank_position"`
	CreatedAt    time.Time `json:"created_at"`
	KeywordIdx   int64     `json:"keyword_idx"`
}

// ExportRow is one deduplicated (user, displayed place, keyword) group of
// the ledger, carrying what the crawler needs to re-run the search.
type ExportRow struct {
	UserIdx     int64
	SearchQuery string
	PlaceID     int64
	PlaceName   string
}

// FindSameDayMatch looks for a rank row carrying the same position, owner,
// display name, keyword name and external place id whose rank_date falls
// inside [dayStart, dayEnd). The smallest rank_idx wins so the earliest
// row of the day is the one kept fresh.
func (r *RankRepository) FindSameDayMatch(position int, userIdx int64, rankName, keywordName string, placeID int64, dayStart, dayEnd time.Time) (int64, bool, error) {
	var rankIdx int64
	res := r.db.Raw(`
		SELECT r.rank_idx
		FROM ranks r
		JOIN keywords k ON r.keyword_idx = k.keyword_idx
		JOIN places p ON k.place_idx = p.place_idx
		WHERE r.rank_num = ?
		  AND r.user_idx = ?
		  AND r.rank_name = ?
		  AND k.keyword_name = ?
		  AND p.place_id = ?
		  AND r.rank_date >= ? AND r.rank_date < ?
		ORDER BY r.rank_idx ASC
		LIMIT 1`,
		position, userIdx, rankName, keywordName, placeID, dayStart, dayEnd,
	).Scan(&rankIdx)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return rankIdx, true, nil
}

// TouchObservedAt refreshes the observation timestamp of an existing rank
// row. This is the only mutation the same-day dedup path performs.
func (r *RankRepository) TouchObservedAt(rankIdx int64, now time.Time) error {
	return r.db.Model(&model.Rank{}).
		Where("rank_idx = ?", rankIdx).
		Update("rank_date", now).Error
}

func (r *RankRepository) Insert(rank *model.Rank) error {
	return r.db.Create(rank).Error
}

// CountExportGroups counts the deduplicated (user_idx, rank_name,
// keyword_idx) groups the export walks, so the cursor range and the chunk
// query always agree.
func (r *RankRepository) CountExportGroups() (int64, error) {
	var count int64
	err := r.db.Raw(`
		SELECT COUNT(*) FROM (
			SELECT 1
			FROM ranks r
			GROUP BY r.user_idx, r.rank_name, r.keyword_idx
		) AS grouped`).Scan(&count).Error
	return count, err
}

// FetchExportChunk returns up to limit grouped rows starting at offset,
// ordered by the greatest rank_idx each group has seen. Multiple
// observations of the same (user, displayed place, keyword) collapse into
// one exported row.
func (r *RankRepository) FetchExportChunk(limit, offset int) ([]ExportRow, error) {
	var rows []ExportRow
	err := r.db.Raw(`
		SELECT
			r.user_idx,
			k.keyword_name AS search_query,
			p.place_id,
			r.rank_name AS place_name
		FROM ranks r
		JOIN keywords k ON r.keyword_idx = k.keyword_idx
		JOIN places p ON k.place_idx = p.place_idx
		GROUP BY r.user_idx, r.rank_name, r.keyword_idx, k.keyword_name, p.place_id
		ORDER BY MAX(r.rank_idx)
		LIMIT ? OFFSET ?`,
		limit, offset,
	).Scan(&rows).Error
	return rows, err
}

// ListByUser returns a user's rank observations joined with keyword and
// place data. Not-found sentinels are excluded from the listing.
func (r *RankRepository) ListByUser(userIdx int64) ([]RankRow, error) {
	var rows []RankRow
	err := r.db.Raw(`
		SELECT
			r.rank_idx,
			k.keyword_name AS search_query,
			p.place_id,
			r.rank_name,
			r.rank_num AS rank_position,
			r.rank_date AS created_at,
			r.keyword_idx
		FROM ranks r
		JOIN keywords k ON r.keyword_idx = k.keyword_idx
		JOIN places p ON k.place_idx = p.place_idx
		WHERE r.rank_num != ? AND r.user_idx = ?
		ORDER BY r.rank_name DESC`,
		model.NotFoundPosition, userIdx,
	).Scan(&rows).Error
	return rows, err
}

func (r *RankRepository) CountDistinctKeywords() (int64, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(DISTINCT keyword_name) FROM keywords`).Scan(&count).Error
	return count, err
}

// AverageRank averages rank positions excluding not-found sentinels.
// Returns 0 when no rows qualify.
func (r *RankRepository) AverageRank() (float64, error) {
	var avg sql.NullFloat64
	err := r.db.Raw(`SELECT AVG(rank_num) FROM ranks WHERE rank_num != ?`,
		model.NotFoundPosition).Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// CountTop3 counts observations that landed in the top three results.
func (r *RankRepository) CountTop3() (int64, error) {
	var count int64
	err := r.db.Model(&model.Rank{}).
		Where("rank_num <= 3 AND rank_num != ?", model.NotFoundPosition).
		Count(&count).Error
	return count, err
}

// CountObservedBetween counts rank rows observed inside [dayStart, dayEnd).
func (r *RankRepository) CountObservedBetween(dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Rank{}).
		Where("rank_date >= ? AND rank_date < ?", dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

// DeleteByIdxAndUser deletes one rank row, scoped to its owner. The
// keyword and place rows stay: other observations may reference them.
// Returns the number of rows removed (0 when the id/owner pair matched
// nothing).
func (r *RankRepository) DeleteByIdxAndUser(rankIdx, userIdx int64) (int64, error) {
	res := r.db.
		Where("rank_idx = ? AND user_idx = ?", rankIdx, userIdx).
		Delete(&model.Rank{})
	return res.RowsAffected, res.Error
}
