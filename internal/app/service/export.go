package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"ezrank_service/internal/app/repository"
)

// ExportItem is one entry of the JSON array posted to the crawling server.
type ExportItem struct {
	UserIdx     int64  `json:"userIdx"`
	SearchQuery string `json:"search_query"`
	PlaceID     int64  `json:"place_id"`
	PlaceName   string `json:"place_name"`
}

type ExportConfig struct {
	// Endpoint is the crawling server's bulk re-crawl URL.
	Endpoint string
	// ChunkSize bounds how many grouped rows go into one dispatch.
	ChunkSize int
	// Pacing is the fixed delay between successive dispatches, keeping
	// the crawling server's request rate bounded.
	Pacing time.Duration
	// RequestTimeout bounds a single dispatch call so a stalled endpoint
	// cannot hang the walk.
	RequestTimeout time.Duration
}

// ExportService walks the full rank ledger by cursor and re-feeds it to
// the crawling server in paced chunks. Delivery is best effort: a failed
// chunk lowers the success counter but never aborts the walk.
type ExportService struct {
	ranks  *repository.RankRepository
	cfg    ExportConfig
	client *http.Client

	// sleep is swapped out by tests to count pacing delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExportService(ranks *repository.RankRepository, cfg ExportConfig) *ExportService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	if cfg.Pacing <= 0 {
		cfg.Pacing = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &ExportService{
		ranks:  ranks,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		sleep:  sleepContext,
	}
}

// ExportAll runs one full export pass and returns a summary message.
//
// The group count is read once at the start; rows ingested while the walk
// runs may or may not be picked up. Only a repository read error is fatal.
// The context is checked every iteration so a daily run can be cancelled.
func (s *ExportService) ExportAll(ctx context.Context) (string, error) {
	total, err := s.ranks.CountExportGroups()
	if err != nil {
		return "", fmt.Errorf("count export groups: %w", err)
	}

	chunk := s.cfg.ChunkSize
	var processed, successful int
	log.Printf("INFO: export started, %d grouped rows, chunk size %d", total, chunk)

	for offset := 0; int64(offset) < total; offset += chunk {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := s.ranks.FetchExportChunk(chunk, offset)
		if err != nil {
			return "", fmt.Errorf("fetch chunk at offset %d: %w", offset, err)
		}
		if len(rows) == 0 {
			// The count and the walk are not a consistent snapshot;
			// an empty page means the ledger shrank under us.
			log.Printf("WARNING: export chunk at offset %d came back empty, stopping early", offset)
			break
		}

		items := make([]ExportItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, ExportItem{
				UserIdx:     row.UserIdx,
				SearchQuery: row.SearchQuery,
				PlaceID:     row.PlaceID,
				PlaceName:   row.PlaceName,
			})
		}

		ok := s.dispatch(ctx, items)
		processed += len(items)
		if ok {
			successful += len(items)
		}
		log.Printf("INFO: export chunk %d sent, %d items, success=%v", offset/chunk+1, len(items), ok)

		if int64(offset+chunk) < total {
			if err := s.sleep(ctx, s.cfg.Pacing); err != nil {
				return "", err
			}
		}
	}

	msg := fmt.Sprintf("processed %d items, %d dispatched successfully", processed, successful)
	log.Printf("INFO: export finished: %s", msg)
	return msg, nil
}

// dispatch posts one chunk as a JSON array. Any transport or protocol
// failure is reported as false, never as an error.
func (s *ExportService) dispatch(ctx context.Context, items []ExportItem) bool {
	body, err := json.Marshal(items)
	if err != nil {
		log.Printf("ERROR: marshal export chunk: %v", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("ERROR: build dispatch request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("ERROR: dispatch to crawling server: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
