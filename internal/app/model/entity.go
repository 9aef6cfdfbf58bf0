package model

import (
	"time"
)

// NotFoundPosition marks a keyword that did not appear in the search
// results at all. Such rows are kept in the ledger but excluded from
// ranking listings and aggregate statistics.
const NotFoundPosition = -1

type User struct {
	UserIdx        int64     `gorm:"column:user_idx;primaryKey;autoIncrement"`
	UserID         string    `gorm:"column:user_id;not null;uniqueIndex"`
	UserPassword   string    `gorm:"column:user_password;not null"`
	UserEmail      string    `gorm:"column:user_email;not null;uniqueIndex"`
	UserName       string    `gorm:"column:user_name;not null"`
	IsAgree        bool      `gorm:"column:is_agree;not null;default:true"`
	MarketingAgree bool      `gorm:"column:marketing_agree;not null;default:false"`
	UserWriteDate  time.Time `gorm:"column:user_write_date;not null"`
}

// Place is a tracked business listing, identified within one user's
// account by the external place_id the crawler reports. The pair
// (user_idx, place_id) is kept unique by lookup-before-insert in the
// service layer, not by a store constraint.
type Place struct {
	PlaceIdx  int64     `gorm:"column:place_idx;primaryKey;autoIncrement"`
	UserIdx   int64     `gorm:"column:user_idx;not null;index"`
	PlaceID   int64     `gorm:"column:place_id;not null;index"`
	PlaceDate time.Time `gorm:"column:place_date;not null"`
	Keywords  []Keyword `gorm:"foreignKey:PlaceIdx"`
}

// Keyword is a search term tracked against one place. place_date and
// keyword_date are liveness timestamps, refreshed each time the crawler
// re-observes the pair.
type Keyword struct {
	KeywordIdx  int64     `gorm:"column:keyword_idx;primaryKey;autoIncrement"`
	PlaceIdx    int64     `gorm:"column:place_idx;not null;index"`
	KeywordName string    `gorm:"column:keyword_name;not null"`
	KeywordDate time.Time `gorm:"column:keyword_date;not null"`
	Ranks       []Rank    `gorm:"foreignKey:KeywordIdx"`
}

// Rank is one observation of a keyword's search position. user_idx is
// denormalized from the owning place for query convenience. rank_date is
// the only mutable field: the same-day dedup path refreshes it instead of
// inserting a second row.
type Rank struct {
	RankIdx    int64     `gorm:"column:rank_idx;primaryKey;autoIncrement"`
	KeywordIdx int64     `gorm:"column:keyword_idx;not null;index"`
	UserIdx    int64     `gorm:"column:user_idx;not null;index"`
	RankName   string    `gorm:"column:rank_name;not null"`
	RankNum    int       `gorm:"column:rank_num;not null"`
	RankDate   time.Time `gorm:"column:rank_date;not null"`
}
