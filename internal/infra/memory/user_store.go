package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-rank-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]domain.User),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrUserExists
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

// ListUsers returns users ordered by creation time, then id.
func (s *UserStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	out := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, cloneUser(user))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *UserStore) UpdateRole(_ context.Context, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Role = role
	s.users[userID] = user
	return nil
}

func (s *UserStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *UserStore) SaveStats(_ context.Context, userID string, stats domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Stats.QuizzesAttended = stats.QuizzesAttended
	user.Stats.TotalScore = stats.TotalScore
	user.Stats.AverageScore = stats.AverageScore
	user.Stats.LastUpdated = stats.LastUpdated
	s.users[userID] = user
	return nil
}

// CommitRanks swaps in a whole pass under one lock.
func (s *UserStore) CommitRanks(_ context.Context, ranked []domain.RankedStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inPass := make(map[string]struct{}, len(ranked))
	for _, row := range ranked {
		user, ok := s.users[row.UserID]
		if !ok {
			continue
		}
		inPass[row.UserID] = struct{}{}
		user.Stats = cloneStats(row.Stats)
		s.users[row.UserID] = user
	}
	for id, user := range s.users {
		if _, ok := inPass[id]; ok || user.Stats.Rank == nil {
			continue
		}
		user.Stats.Rank = nil
		s.users[id] = user
	}
	return nil
}

func cloneUser(u domain.User) domain.User {
	u.Stats = cloneStats(u.Stats)
	return u
}

func cloneStats(st domain.UserStats) domain.UserStats {
	if st.Rank != nil {
		rank := *st.Rank
		st.Rank = &rank
	}
	return st
}
