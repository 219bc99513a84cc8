package postgres

import (
	"context"
	"fmt"

	"quiz-rank-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore keeps the append-only submission log in the results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) Append(ctx context.Context, rec domain.SubmissionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO results (id, user_id, quiz_id, score, total_questions, correct_answers, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.QuizID, rec.Score, rec.TotalQuestions, rec.CorrectAnswers, rec.SubmittedAt)
	if err != nil {
		return fmt.Errorf("%w: append result: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.SubmissionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quiz_id, score, total_questions, correct_answers, submitted_at
		FROM results WHERE user_id = $1
		ORDER BY submitted_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list results: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		var rec domain.SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizID, &rec.Score, &rec.TotalQuestions, &rec.CorrectAnswers, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("%w: scan result: %w", domain.ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list results: %w", domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

func (s *ResultStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM results WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete results: %w", domain.ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *ResultStore) Summary(ctx context.Context) (domain.ResultSummary, error) {
	var summary domain.ResultSummary
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8 FROM results`).
		Scan(&summary.TotalResults, &summary.AverageScore)
	if err != nil {
		return domain.ResultSummary{}, fmt.Errorf("%w: summarize results: %w", domain.ErrStoreUnavailable, err)
	}
	return summary, nil
}
