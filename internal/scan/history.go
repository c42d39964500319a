package scan

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/mutker/healthsync/internal/api"
	"codeberg.org/mutker/healthsync/internal/errors"
)

// Record is one scan from the user's history
type Record struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	ScanType    Type            `json:"scanType"`
	HealthScore *float64        `json:"healthScore,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// HistoryResult is also the cached value, so it must survive a JSON round
// trip. Only successful results are cached.
type HistoryResult struct {
	Success bool         `json:"success"`
	Scans   []Record     `json:"scans"`
	Count   int          `json:"count"`
	Err     errors.Error `json:"-"`
	Message string       `json:"message,omitempty"`
}

func (h HistoryResult) Failure() errors.Error {
	return h.Err
}

// History returns the signed-in user's scans, newest first as the backend
// orders them. The cache holds one page per user whatever the limit or
// type filter; bypass it with useCache=false after changing either.
func (s *Service) History(ctx context.Context, limit int, scanType Type, useCache bool) (HistoryResult, error) {
	userID, err := s.identity.UserID(ctx)
	if err != nil {
		return HistoryResult{}, err
	}

	if useCache {
		if cached, ok := s.cache.Get(ctx, userID); ok {
			s.logger.Debug().Int("count", cached.Count).Msg("Returning cached scan history")
			return cached, nil
		}
	}

	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}

	resp, err := s.backend.ScanHistory(ctx, userID, limit, string(scanType))
	if err != nil {
		classified := s.failed(scanType, "history", err)
		return HistoryResult{Scans: []Record{}, Err: classified, Message: classified.UserMessage()}, nil
	}

	result := reshape(resp)
	if result.Success {
		if err := s.cache.Set(ctx, userID, result); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache scan history")
		}
	}

	s.logger.Debug().Int("count", result.Count).Msg("Fetched scan history")
	return result, nil
}

// reshape turns the backend page into a HistoryResult. Count prefers the
// server's total over the page length.
func reshape(resp api.ScanHistoryResponse) HistoryResult {
	scans := make([]Record, 0, len(resp.Data))
	for _, item := range resp.Data {
		scans = append(scans, Record{
			ID:          item.ID,
			Timestamp:   item.Timestamp,
			ScanType:    Type(item.ScanType),
			HealthScore: item.HealthScore,
			ProductName: item.ProductName,
			Payload:     item.Payload,
		})
	}

	count := len(scans)
	if resp.Pagination != nil && resp.Pagination.Total > 0 {
		count = resp.Pagination.Total
	}

	return HistoryResult{
		Success: resp.Success,
		Scans:   scans,
		Count:   count,
		Message: resp.Error,
	}
}
