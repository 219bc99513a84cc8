package domain

import "time"

// Role distinguishes regular users from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStats is the denormalized rollup of a user's submissions.
type UserStats struct {
	QuizzesAttended int       `json:"quizzesAttended"`
	TotalScore      int       `json:"totalScore"`
	AverageScore    int       `json:"averageScore"`
	Rank            *int      `json:"rank"` // nil until the user is included in a recompute pass
	LastUpdated     time.Time `json:"lastUpdated"`
}

// SameAggregate reports whether both stats carry equal aggregate fields and rank.
func (s UserStats) SameAggregate(o UserStats) bool {
	if s.QuizzesAttended != o.QuizzesAttended || s.TotalScore != o.TotalScore || s.AverageScore != o.AverageScore {
		return false
	}
	if s.Rank == nil || o.Rank == nil {
		return s.Rank == nil && o.Rank == nil
	}
	return *s.Rank == *o.Rank
}

// User is an account together with its embedded stats.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Stats     UserStats `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submission is the ingress payload for one completed quiz attempt.
type Submission struct {
	UserID         string
	QuizID         string
	Score          int
	TotalQuestions int
	CorrectAnswers int
}

// SubmissionRecord is an immutable, appended quiz result.
type SubmissionRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions,omitempty"`
	CorrectAnswers int       `json:"correctAnswers,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// RankedStats is one row of a committed recompute pass.
type RankedStats struct {
	UserID string
	Stats  UserStats
}

// LeaderboardEntry is the public projection of a ranked user.
type LeaderboardEntry struct {
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	TotalScore       int    `json:"totalScore"`
	QuizzesCompleted int    `json:"quizzesCompleted"`
	AvgScore         int    `json:"avgScore"`
	Rank             int    `json:"rank"`
}

// Leaderboard captures the ordered, filtered view served to clients.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ResultSummary aggregates every stored submission.
type ResultSummary struct {
	TotalResults int
	AverageScore float64
}

// Overview is the admin dashboard counter set.
type Overview struct {
	TotalUsers   int `json:"totalUsers"`
	TotalResults int `json:"totalResults"`
	AvgScore     int `json:"avgScore"`
}
