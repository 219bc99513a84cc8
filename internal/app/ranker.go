package app

import (
	"sort"

	"quiz-rank-service/internal/domain"
)

// AssignRanks orders standings by total score, then quizzes attended, then
// average score (all descending) and assigns ranks 1..n without gaps. Fully
// equal tuples fall back to user id so repeated passes agree. The input slice
// is not modified.
func AssignRanks(standings []domain.RankedStats) []domain.RankedStats {
	out := make([]domain.RankedStats, len(standings))
	copy(out, standings)

	sort.SliceStable(out, func(i, j int) bool {
		return ranksBefore(out[i].Stats, out[j].Stats, out[i].UserID, out[j].UserID)
	})

	for i := range out {
		rank := i + 1
		out[i].Stats.Rank = &rank
	}
	return out
}

// ranksBefore is the ranking key chain shared by the assigner and the leaderboard.
func ranksBefore(a, b domain.UserStats, aID, bID string) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.QuizzesAttended != b.QuizzesAttended {
		return a.QuizzesAttended > b.QuizzesAttended
	}
	if a.AverageScore != b.AverageScore {
		return a.AverageScore > b.AverageScore
	}
	return aID < bID
}
