package memory

import (
	"context"
	"sync"

	"quiz-rank-service/internal/domain"
)

// ResultStore is an in-memory append-only submission log.
type ResultStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.SubmissionRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		byUser: make(map[string][]domain.SubmissionRecord),
	}
}

func (s *ResultStore) Append(_ context.Context, rec domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec)
	return nil
}

// ListByUser returns a copy of the user's records in append order.
func (s *ResultStore) ListByUser(_ context.Context, userID string) ([]domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.byUser[userID]
	out := make([]domain.SubmissionRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *ResultStore) DeleteByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byUser[userID])
	delete(s.byUser, userID)
	return n, nil
}

func (s *ResultStore) Summary(_ context.Context) (domain.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summary domain.ResultSummary
	sum := 0
	for _, records := range s.byUser {
		for _, rec := range records {
			summary.TotalResults++
			sum += rec.Score
		}
	}
	if summary.TotalResults > 0 {
		summary.AverageScore = float64(sum) / float64(summary.TotalResults)
	}
	return summary, nil
}
