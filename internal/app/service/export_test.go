package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ezrank_service/internal/app/model"
	"ezrank_service/internal/app/repository"
)

// seedExportGroups creates n distinct (user, display name, keyword) groups
// under a single place.
func seedExportGroups(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	now := time.Now()
	place := &model.Place{UserIdx: 1, PlaceID: 42, PlaceDate: now}
	require.NoError(t, db.Create(place).Error)

	for i := 0; i < n; i++ {
		keyword := &model.Keyword{
			PlaceIdx:    place.PlaceIdx,
			KeywordName: fmt.Sprintf("keyword-%02d", i),
			KeywordDate: now,
		}
		require.NoError(t, db.Create(keyword).Error)
		rank := &model.Rank{
			KeywordIdx: keyword.KeywordIdx,
			UserIdx:    1,
			RankName:   "Store " + keyword.KeywordName,
			RankNum:    i%10 + 1,
			RankDate:   now,
		}
		require.NoError(t, db.Create(rank).Error)
	}
}

type dispatchRecorder struct {
	mu         sync.Mutex
	chunkSizes []int
	status     int
	firstItem  map[string]json.RawMessage
}

func (d *dispatchRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var items []map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&items))

		d.mu.Lock()
		d.chunkSizes = append(d.chunkSizes, len(items))
		if d.firstItem == nil && len(items) > 0 {
			d.firstItem = items[0]
		}
		d.mu.Unlock()

		w.WriteHeader(d.status)
	}
}

func newTestExporter(t *testing.T, db *gorm.DB, endpoint string) (*ExportService, *int) {
	t.Helper()
	svc := NewExportService(repository.NewRankRepository(db), ExportConfig{
		Endpoint:  endpoint,
		ChunkSize: 10,
		Pacing:    5 * time.Second,
	})
	sleeps := 0
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, 5*time.Second, d)
		sleeps++
		return nil
	}
	return svc, &sleeps
}

func TestExportAllChunksAndPacing(t *testing.T) {
	db := setupTestDB(t)
	seedExportGroups(t, db, 25)

	rec := &dispatchRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	svc, sleeps := newTestExporter(t, db, srv.URL)
	msg, err := svc.ExportAll(context.Background())
	require.NoError(t, err)

	// 25 groups with chunk size 10: dispatches of 10, 10, 5 and a pacing
	// delay between chunks but not after the last one.
	assert.Equal(t, []int{10, 10, 5}, rec.chunkSizes)
	assert.Equal(t, 2, *sleeps)
	assert.Equal(t, "processed 25 items, 25 dispatched successfully", msg)

	// Wire format the crawling server expects.
	require.NotNil(t, rec.firstItem)
	for _, key := range []string{"userIdx", "search_query", "place_id", "place_name"} {
		assert.Contains(t, rec.firstItem, key)
	}
}

func TestExportAllDispatchFailureDoesNotAbort(t *testing.T) {
	db := setupTestDB(t)
	seedExportGroups(t, db, 25)

	rec := &dispatchRecorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	svc, sleeps := newTestExporter(t, db, srv.URL)
	msg, err := svc.ExportAll(context.Background())
	require.NoError(t, err)

	// Every chunk still went out; only the success counter suffers.
	assert.Equal(t, []int{10, 10, 5}, rec.chunkSizes)
	assert.Equal(t, 2, *sleeps)
	assert.Equal(t, "processed 25 items, 0 dispatched successfully", msg)
}

func TestExportAllUnreachableEndpoint(t *testing.T) {
	db := setupTestDB(t)
	seedExportGroups(t, db, 5)

	svc, _ := newTestExporter(t, db, "http://127.0.0.1:1/api/rank/bulk")
	msg, err := svc.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "processed 5 items, 0 dispatched successfully", msg)
}

func TestExportAllEmptyLedger(t *testing.T) {
	db := setupTestDB(t)

	rec := &dispatchRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	svc, sleeps := newTestExporter(t, db, srv.URL)
	msg, err := svc.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.chunkSizes)
	assert.Zero(t, *sleeps)
	assert.Equal(t, "processed 0 items, 0 dispatched successfully", msg)
}

func TestExportAllCancellation(t *testing.T) {
	db := setupTestDB(t)
	seedExportGroups(t, db, 5)

	rec := &dispatchRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	svc, _ := newTestExporter(t, db, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ExportAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.chunkSizes)
}

func TestExportConfigDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExportService(repository.NewRankRepository(db), ExportConfig{Endpoint: "http://example.com"})
	assert.Equal(t, 10, svc.cfg.ChunkSize)
	assert.Equal(t, 5*time.Second, svc.cfg.Pacing)
	assert.Equal(t, 30*time.Second, svc.cfg.RequestTimeout)
}
