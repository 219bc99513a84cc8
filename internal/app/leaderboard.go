package app

import (
	"context"
	"sort"
	"strconv"

	"quiz-rank-service/internal/domain"
)

// GetLeaderboard projects stored stats into the public leaderboard. It never
// aggregates or reranks. Admins and users without attempts are hidden, so the
// visible rank column may skip numbers held by hidden users.
func (s *RankingService) GetLeaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = s.limit
	}
	result, err, _ := s.reads.Do(strconv.Itoa(limit), func() (interface{}, error) {
		return s.buildLeaderboard(ctx, limit)
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

func (s *RankingService) buildLeaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	visible := make([]domain.User, 0, len(users))
	for _, u := range users {
		if s.isAdmin(u) || u.Stats.Rank == nil {
			continue
		}
		if u.Stats.QuizzesAttended == 0 && u.Stats.TotalScore == 0 {
			continue
		}
		visible = append(visible, u)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if *a.Stats.Rank != *b.Stats.Rank {
			return *a.Stats.Rank < *b.Stats.Rank
		}
		return ranksBefore(a.Stats, b.Stats, a.ID, b.ID)
	})
	if len(visible) > limit {
		visible = visible[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(visible))
	for _, u := range visible {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:           u.ID,
			Name:             u.Name,
			Email:            u.Email,
			TotalScore:       u.Stats.TotalScore,
			QuizzesCompleted: u.Stats.QuizzesAttended,
			AvgScore:         u.Stats.AverageScore,
			Rank:             *u.Stats.Rank,
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}
