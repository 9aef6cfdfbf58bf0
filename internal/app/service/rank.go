package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"ezrank_service/internal/app/model"
	"ezrank_service/internal/app/repository"
)

// Outcome reports whether a measurement produced a new rank row or only
// refreshed the timestamp of a same-day duplicate.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeRefreshed
)

// ValidationError carries the input problems found before any storage
// access was attempted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// BatchError aggregates the per-item failures of a batch save. Items that
// succeeded before a failing item have already been written; the error
// does not roll them back.
type BatchError struct {
	Items []string
}

func (e *BatchError) Error() string {
	return "errors while saving: " + strings.Join(e.Items, "; ")
}

// SaveRankRequest is one measurement from the crawling agent. place_id
// arrives as either a numeric string or a number depending on the crawler
// version, so it is decoded lazily.
type SaveRankRequest struct {
	SearchQuery  string          `json:"search_query"`
	PlaceID      json.RawMessage `json:"place_id"`
	RankPosition int             `json:"rank_position"`
	PlaceName    string          `json:"place_name"`
	UserIdx      int64           `json:"userIdx"`
	Traffic      *float64        `json:"traffic,omitempty"`
}

type StatsResponse struct {
	TotalKeywords int64   `json:"total_keywords"`
	AvgRank       float64 `json:"avg_rank"`
	Top3Count     int64   `json:"top3_count"`
	TodayCount    int64   `json:"today_count"`
}

type RankService struct {
	ranks    *repository.RankRepository
	places   *repository.PlaceRepository
	keywords *repository.KeywordRepository

	// loc is the reference timezone: every stored timestamp and every
	// calendar-day boundary uses it.
	loc *time.Location
	now func() time.Time
}

func NewRankService(ranks *repository.RankRepository, places *repository.PlaceRepository, keywords *repository.KeywordRepository, loc *time.Location) *RankService {
	return &RankService{
		ranks:    ranks,
		places:   places,
		keywords: keywords,
		loc:      loc,
		now:      time.Now,
	}
}

// SaveRank reconciles a single measurement against the ledger.
func (s *RankService) SaveRank(req SaveRankRequest) (string, error) {
	outcome, err := s.reconcile(req)
	if err != nil {
		return "", err
	}
	if outcome == OutcomeRefreshed {
		return "existing data refreshed", nil
	}
	return "new data stored", nil
}

// SaveRanks processes an ordered batch, item by item. A failing item does
// not stop later items; after the full pass either all captured errors are
// returned as one BatchError, or a summary of insert/refresh counts.
func (s *RankService) SaveRanks(reqs []SaveRankRequest) (string, error) {
	if len(reqs) == 0 {
		return "", &ValidationError{Problems: []string{"nothing to save"}}
	}

	var inserted, refreshed int
	var itemErrors []string

	for i, req := range reqs {
		outcome, err := s.reconcile(req)
		if err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %d: %v", i+1, err))
			continue
		}
		if outcome == OutcomeRefreshed {
			refreshed++
		} else {
			inserted++
		}
	}

	if len(itemErrors) > 0 {
		return "", &BatchError{Items: itemErrors}
	}

	total := inserted + refreshed
	switch {
	case inserted > 0 && refreshed > 0:
		return fmt.Sprintf("processed %d items (%d new, %d refreshed)", total, inserted, refreshed), nil
	case inserted > 0:
		return fmt.Sprintf("stored %d new items", inserted), nil
	case refreshed > 0:
		return fmt.Sprintf("refreshed %d items", refreshed), nil
	default:
		return "no items processed", nil
	}
}

// reconcile decides insert-vs-refresh for one measurement.
//
// A measurement matching an existing rank row on (position, owner, display
// name, keyword, place id) within the current calendar day only gets its
// timestamp refreshed. Otherwise place and keyword rows are found or
// created and a fresh rank row is inserted under them.
func (s *RankService) reconcile(req SaveRankRequest) (Outcome, error) {
	if problems := validateRankInput(req); len(problems) > 0 {
		return 0, &ValidationError{Problems: problems}
	}

	placeID, err := parsePlaceID(req.PlaceID)
	if err != nil {
		return 0, &ValidationError{Problems: []string{err.Error()}}
	}

	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rankIdx, found, err := s.ranks.FindSameDayMatch(
		req.RankPosition, req.UserIdx, req.PlaceName, req.SearchQuery, placeID,
		dayStart, dayEnd,
	)
	if err != nil {
		return 0, fmt.Errorf("same-day lookup: %w", err)
	}
	if found {
		if err := s.ranks.TouchObservedAt(rankIdx, now); err != nil {
			return 0, fmt.Errorf("refresh rank %d: %w", rankIdx, err)
		}
		return OutcomeRefreshed, nil
	}

	place, err := s.places.FindByUserAndPlaceID(req.UserIdx, placeID)
	if err != nil {
		return 0, fmt.Errorf("find place: %w", err)
	}
	if place != nil {
		if err := s.places.TouchLastSeen(place.PlaceIdx, now); err != nil {
			return 0, fmt.Errorf("refresh place %d: %w", place.PlaceIdx, err)
		}
	} else {
		place = &model.Place{
			UserIdx:   req.UserIdx,
			PlaceID:   placeID,
			PlaceDate: now,
		}
		if err := s.places.Insert(place); err != nil {
			return 0, fmt.Errorf("insert place: %w", err)
		}
	}

	keyword, err := s.keywords.FindByPlaceAndName(place.PlaceIdx, req.SearchQuery)
	if err != nil {
		return 0, fmt.Errorf("find keyword: %w", err)
	}
	if keyword != nil {
		if err := s.keywords.TouchLastSeen(keyword.KeywordIdx, now); err != nil {
			return 0, fmt.Errorf("refresh keyword %d: %w", keyword.KeywordIdx, err)
		}
	} else {
		keyword = &model.Keyword{
			PlaceIdx:    place.PlaceIdx,
			KeywordName: req.SearchQuery,
			KeywordDate: now,
		}
		if err := s.keywords.Insert(keyword); err != nil {
			return 0, fmt.Errorf("insert keyword: %w", err)
		}
	}

	rank := &model.Rank{
		KeywordIdx: keyword.KeywordIdx,
		UserIdx:    req.UserIdx,
		RankName:   req.PlaceName,
		RankNum:    req.RankPosition,
		RankDate:   now,
	}
	if err := s.ranks.Insert(rank); err != nil {
		return 0, fmt.Errorf("insert rank: %w", err)
	}
	return OutcomeInserted, nil
}

// GetRanks lists a user's observations, most recent display names first.
func (s *RankService) GetRanks(userIdx int64) ([]repository.RankRow, error) {
	rows, err := s.ranks.ListByUser(userIdx)
	if err != nil {
		return nil, fmt.Errorf("list ranks: %w", err)
	}
	return rows, nil
}

// GetStatistics aggregates the ledger. Not-found sentinels are excluded
// from the average and the top-3 count; "today" follows the reference
// timezone.
func (s *RankService) GetStatistics() (StatsResponse, error) {
	totalKeywords, err := s.ranks.CountDistinctKeywords()
	if err != nil {
		return StatsResponse{}, fmt.Errorf("count keywords: %w", err)
	}
	avg, err := s.ranks.AverageRank()
	if err != nil {
		return StatsResponse{}, fmt.Errorf("average rank: %w", err)
	}
	top3, err := s.ranks.CountTop3()
	if err != nil {
		return StatsResponse{}, fmt.Errorf("count top3: %w", err)
	}

	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	today, err := s.ranks.CountObservedBetween(dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return StatsResponse{}, fmt.Errorf("count today: %w", err)
	}

	return StatsResponse{
		TotalKeywords: totalKeywords,
		AvgRank:       roundAvg(avg),
		Top3Count:     top3,
		TodayCount:    today,
	}, nil
}

// DeleteRank removes one observation, scoped to its owner. A miss (wrong
// id or wrong owner) is reported as deleted=false, not as an error.
func (s *RankService) DeleteRank(rankIdx, userIdx int64) (bool, error) {
	affected, err := s.ranks.DeleteByIdxAndUser(rankIdx, userIdx)
	if err != nil {
		return false, fmt.Errorf("delete rank: %w", err)
	}
	return affected > 0, nil
}

func validateRankInput(req SaveRankRequest) []string {
	var problems []string
	if strings.TrimSpace(req.SearchQuery) == "" {
		problems = append(problems, "search_query is required")
	}
	if len(req.PlaceID) == 0 || string(req.PlaceID) == "null" {
		problems = append(problems, "place_id is required")
	}
	return problems
}

// parsePlaceID accepts the external place id as either a JSON number or a
// decimal numeric string and rejects zero, which the crawler uses for
// "unknown".
func parsePlaceID(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if text == "" {
		return 0, errors.New("place_id is required")
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Older crawler builds send the id as a float.
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return 0, fmt.Errorf("place_id must be a number or numeric string, got %q", text)
		}
		id = int64(f)
	}
	if id == 0 {
		return 0, errors.New("place_id is required")
	}
	return id, nil
}

// roundAvg rounds to one decimal, half away from zero.
func roundAvg(v float64) float64 {
	return math.Round(v*10) / 10
}
