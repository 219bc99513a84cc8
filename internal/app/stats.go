package app

import (
	"time"

	"quiz-rank-service/internal/domain"
)

// Aggregate rolls a user's submission history into stats. Only the best attempt
// per quiz counts toward the total. Rank is left nil.
func Aggregate(records []domain.SubmissionRecord, now time.Time) domain.UserStats {
	best := make(map[string]int, len(records))
	for _, rec := range records {
		if score, ok := best[rec.QuizID]; !ok || rec.Score > score {
			best[rec.QuizID] = rec.Score
		}
	}

	total := 0
	for _, score := range best {
		total += score
	}

	return domain.UserStats{
		QuizzesAttended: len(best),
		TotalScore:      total,
		AverageScore:    roundedAverage(total, len(best)),
		LastUpdated:     now,
	}
}

// roundedAverage divides with half-up rounding; zero count yields zero.
func roundedAverage(sum, count int) int {
	if count <= 0 {
		return 0
	}
	return (2*sum + count) / (2 * count)
}
