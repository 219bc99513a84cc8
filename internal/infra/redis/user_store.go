package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"quiz-rank-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// UserStore keeps users and their stats in Redis.
// Layout:
//
//	HSET user:{id}     name email role quizzes_attended total_score average_score rank stats_updated_at created_at
//	SADD users         {id}
//	HSET users:email   {email} {id}
//
// Multi-key writes run under WATCH/MULTI so a rank commit never interleaves
// with a user being added or removed.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	key := s.key(user.ID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.HExists(ctx, emailIndexKey, user.Email).Result()
		if err != nil {
			return err
		}
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if taken || exists > 0 {
			return domain.ErrUserExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeUser(user))
			pipe.SAdd(ctx, usersKey, user.ID)
			pipe.HSet(ctx, emailIndexKey, user.Email, user.ID)
			return nil
		})
		return err
	}, emailIndexKey, key)
	return wrap("create user", err)
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.User{}, wrap("get user", err)
	}
	if len(fields) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	user, err := decodeUser(fields)
	if err != nil {
		return domain.User{}, wrap("decode user", err)
	}
	return user, nil
}

// ListUsers returns users ordered by creation time, then id.
func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	ids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, wrap("list users", err)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	pipe := s.client.Pipeline()
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, s.key(id)))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, wrap("list users", err)
		}
	}

	users := make([]domain.User, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		user, err := decodeUser(fields)
		if err != nil {
			return nil, wrap("decode user", err)
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	return s.updateExisting(ctx, "update role", userID, map[string]interface{}{
		"role": string(role),
	})
}

func (s *UserStore) SaveStats(ctx context.Context, userID string, stats domain.UserStats) error {
	return s.updateExisting(ctx, "save stats", userID, map[string]interface{}{
		"quizzes_attended": stats.QuizzesAttended,
		"total_score":      stats.TotalScore,
		"average_score":    stats.AverageScore,
		"stats_updated_at": stats.LastUpdated.Format(time.RFC3339Nano),
	})
}

func (s *UserStore) DeleteUser(ctx context.Context, userID string) error {
	key := s.key(userID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		email, err := tx.HGet(ctx, key, "email").Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, usersKey, userID)
			pipe.HDel(ctx, emailIndexKey, email)
			return nil
		})
		return err
	}, key, usersKey)
	return wrap("delete user", err)
}

// CommitRanks writes the whole pass in one MULTI/EXEC. WATCH on the user set
// retries the commit if users were added or removed meanwhile.
func (s *UserStore) CommitRanks(ctx context.Context, ranked []domain.RankedStats) error {
	err := s.watch(ctx, func(tx *redis.Tx) error {
		ids, err := tx.SMembers(ctx, usersKey).Result()
		if err != nil {
			return err
		}
		present := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			present[id] = struct{}{}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			inPass := make(map[string]struct{}, len(ranked))
			for _, row := range ranked {
				if _, ok := present[row.UserID]; !ok {
					continue
				}
				inPass[row.UserID] = struct{}{}
				pipe.HSet(ctx, s.key(row.UserID), encodeStats(row.Stats))
			}
			for id := range present {
				if _, ok := inPass[id]; !ok {
					pipe.HSet(ctx, s.key(id), "rank", "")
				}
			}
			return nil
		})
		return err
	}, usersKey)
	return wrap("commit ranks", err)
}

func (s *UserStore) updateExisting(ctx context.Context, op, userID string, fields map[string]interface{}) error {
	key := s.key(userID)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrUserNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	}, key)
	return wrap(op, err)
}

func (s *UserStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	return watchWithRetry(ctx, s.client, fn, keys...)
}

// watchWithRetry runs fn under WATCH, retrying when a watched key changed.
func watchWithRetry(ctx context.Context, client *redis.Client, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (s *UserStore) key(userID string) string {
	return "user:" + userID
}

const (
	usersKey      = "users"
	emailIndexKey = "users:email"
)

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrUserExists) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

func encodeUser(u domain.User) map[string]interface{} {
	fields := encodeStats(u.Stats)
	fields["id"] = u.ID
	fields["name"] = u.Name
	fields["email"] = u.Email
	fields["role"] = string(u.Role)
	fields["created_at"] = u.CreatedAt.Format(time.RFC3339Nano)
	return fields
}

func encodeStats(st domain.UserStats) map[string]interface{} {
	rank := ""
	if st.Rank != nil {
		rank = strconv.Itoa(*st.Rank)
	}
	return map[string]interface{}{
		"quizzes_attended": st.QuizzesAttended,
		"total_score":      st.TotalScore,
		"average_score":    st.AverageScore,
		"rank":             rank,
		"stats_updated_at": st.LastUpdated.Format(time.RFC3339Nano),
	}
}

func decodeUser(fields map[string]string) (domain.User, error) {
	u := domain.User{
		ID:    fields["id"],
		Name:  fields["name"],
		Email: fields["email"],
		Role:  domain.Role(fields["role"]),
	}
	var err error
	if u.Stats.QuizzesAttended, err = atoi(fields["quizzes_attended"]); err != nil {
		return u, err
	}
	if u.Stats.TotalScore, err = atoi(fields["total_score"]); err != nil {
		return u, err
	}
	if u.Stats.AverageScore, err = atoi(fields["average_score"]); err != nil {
		return u, err
	}
	if raw := fields["rank"]; raw != "" {
		rank, err := strconv.Atoi(raw)
		if err != nil {
			return u, err
		}
		u.Stats.Rank = &rank
	}
	if u.Stats.LastUpdated, err = parseTime(fields["stats_updated_at"]); err != nil {
		return u, err
	}
	if u.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return u, err
	}
	return u, nil
}

func atoi(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
