package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-rank-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID              string    `bun:"id,pk"`
	Name            string    `bun:"name"`
	Email           string    `bun:"email"`
	Role            string    `bun:"role"`
	QuizzesAttended int       `bun:"quizzes_attended"`
	TotalScore      int       `bun:"total_score"`
	AverageScore    int       `bun:"average_score"`
	Rank            *int      `bun:"rank"`
	StatsUpdatedAt  time.Time `bun:"stats_updated_at"`
	CreatedAt       time.Time `bun:"created_at"`
}

func toRow(u domain.User) userRow {
	return userRow{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		QuizzesAttended: u.Stats.QuizzesAttended,
		TotalScore:      u.Stats.TotalScore,
		AverageScore:    u.Stats.AverageScore,
		Rank:            u.Stats.Rank,
		StatsUpdatedAt:  u.Stats.LastUpdated,
		CreatedAt:       u.CreatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:    r.ID,
		Name:  r.Name,
		Email: r.Email,
		Role:  domain.Role(r.Role),
		Stats: domain.UserStats{
			QuizzesAttended: r.QuizzesAttended,
			TotalScore:      r.TotalScore,
			AverageScore:    r.AverageScore,
			Rank:            r.Rank,
			LastUpdated:     r.StatsUpdatedAt,
		},
		CreatedAt: r.CreatedAt,
	}
}

// UserStore keeps users and their embedded stats in the users table.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	row := toRow(user)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return domain.ErrUserExists
		}
		return unavailable("create user", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, unavailable("get user", err)
	}
	return row.toDomain(), nil
}

// ListUsers returns users ordered by creation time, then id.
func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, unavailable("list users", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("role = ?", string(role)).
		Where("id = ?", userID).
		Exec(ctx)
	return checkAffected(res, err, "update role")
}

func (s *UserStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.NewDelete().
		Model((*userRow)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	return checkAffected(res, err, "delete user")
}

func (s *UserStore) SaveStats(ctx context.Context, userID string, stats domain.UserStats) error {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("quizzes_attended = ?", stats.QuizzesAttended).
		Set("total_score = ?", stats.TotalScore).
		Set("average_score = ?", stats.AverageScore).
		Set("stats_updated_at = ?", stats.LastUpdated).
		Where("id = ?", userID).
		Exec(ctx)
	return checkAffected(res, err, "save stats")
}

// CommitRanks rewrites the rank table inside one transaction.
func (s *UserStore) CommitRanks(ctx context.Context, ranked []domain.RankedStats) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*userRow)(nil)).
			Set("rank = NULL").
			Where("rank IS NOT NULL").
			Exec(ctx); err != nil {
			return err
		}
		for _, row := range ranked {
			if _, err := tx.NewUpdate().
				Model((*userRow)(nil)).
				Set("quizzes_attended = ?", row.Stats.QuizzesAttended).
				Set("total_score = ?", row.Stats.TotalScore).
				Set("average_score = ?", row.Stats.AverageScore).
				Set("rank = ?", row.Stats.Rank).
				Set("stats_updated_at = ?", row.Stats.LastUpdated).
				Where("id = ?", row.UserID).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("commit ranks", err)
	}
	return nil
}

func checkAffected(res sql.Result, err error, op string) error {
	if err != nil {
		return unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
