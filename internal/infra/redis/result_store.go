package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-rank-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultStore keeps the append-only submission log in Redis.
// Layout:
//
//	RPUSH results:{userID}  {json record}
//	HINCRBY summary:results count 1 / sum {score}
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

const (
	resultsSummaryKey = "summary:results"
	summaryCount      = "count"
	summarySum        = "sum"
)

func (s *ResultStore) Append(ctx context.Context, rec domain.SubmissionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key(rec.UserID), data)
		pipe.HIncrBy(ctx, resultsSummaryKey, summaryCount, 1)
		pipe.HIncrBy(ctx, resultsSummaryKey, summarySum, int64(rec.Score))
		return nil
	})
	return wrap("append result", err)
}

// ListByUser returns the user's records in append order.
func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.SubmissionRecord, error) {
	raw, err := s.client.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		return nil, wrap("list results", err)
	}
	return decodeRecords(raw)
}

func (s *ResultStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	key := s.key(userID)
	removed := 0
	err := s.watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		records, err := decodeRecords(raw)
		if err != nil {
			return err
		}
		sum := 0
		for _, rec := range records {
			sum += rec.Score
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HIncrBy(ctx, resultsSummaryKey, summaryCount, -int64(len(records)))
			pipe.HIncrBy(ctx, resultsSummaryKey, summarySum, -int64(sum))
			return nil
		})
		removed = len(records)
		return err
	}, key)
	if err != nil {
		return 0, wrap("delete results", err)
	}
	return removed, nil
}

func (s *ResultStore) Summary(ctx context.Context) (domain.ResultSummary, error) {
	fields, err := s.client.HGetAll(ctx, resultsSummaryKey).Result()
	if err != nil {
		return domain.ResultSummary{}, wrap("summarize results", err)
	}
	count, err := atoi(fields[summaryCount])
	if err != nil {
		return domain.ResultSummary{}, wrap("summarize results", err)
	}
	sum, err := atoi(fields[summarySum])
	if err != nil {
		return domain.ResultSummary{}, wrap("summarize results", err)
	}
	summary := domain.ResultSummary{TotalResults: count}
	if count > 0 {
		summary.AverageScore = float64(sum) / float64(count)
	}
	return summary, nil
}

func (s *ResultStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	return watchWithRetry(ctx, s.client, fn, keys...)
}

func (s *ResultStore) key(userID string) string {
	return "results:" + userID
}

func decodeRecords(raw []string) ([]domain.SubmissionRecord, error) {
	records := make([]domain.SubmissionRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.SubmissionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, wrap("decode result", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
