package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestUserStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestStore(t)

	created := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	user := domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser, CreatedAt: created}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("user:u1") {
		t.Fatalf("expected user hash to be written")
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Name: "Other", Email: "alice@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	got, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Alice" || !got.CreatedAt.Equal(created) || got.Stats.Rank != nil {
		t.Fatalf("unexpected user %+v", got)
	}

	if err := store.SaveStats(ctx, "u1", domain.UserStats{QuizzesAttended: 2, TotalScore: 150, AverageScore: 75, LastUpdated: created}); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	if err := store.SaveStats(ctx, "ghost", domain.UserStats{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("user:ghost") {
		t.Fatalf("save stats must not create missing users")
	}
}

func TestUserStoreCommitRanksAndDelete(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestStore(t)
	for i, id := range []string{"u1", "u2", "u3"} {
		_ = store.CreateUser(ctx, domain.User{
			ID:        id,
			Name:      id,
			Email:     id + "@example.com",
			Role:      domain.RoleUser,
			CreatedAt: time.Unix(int64(100+i), 0).UTC(),
		})
	}

	one, two := 1, 2
	err := store.CommitRanks(ctx, []domain.RankedStats{
		{UserID: "u2", Stats: domain.UserStats{TotalScore: 90, QuizzesAttended: 1, AverageScore: 90, Rank: &one}},
		{UserID: "u1", Stats: domain.UserStats{TotalScore: 40, QuizzesAttended: 1, AverageScore: 40, Rank: &two}},
		{UserID: "gone", Stats: domain.UserStats{Rank: &two}},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mr.Exists("user:gone") {
		t.Fatalf("commit must skip unknown users")
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 || users[0].ID != "u1" || users[2].ID != "u3" {
		t.Fatalf("expected creation order, got %+v", users)
	}
	if users[1].Stats.Rank == nil || *users[1].Stats.Rank != 1 || users[2].Stats.Rank != nil {
		t.Fatalf("unexpected ranks %+v", users)
	}

	if err := store.DeleteUser(ctx, "u2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("user:u2") {
		t.Fatalf("expected user hash removed")
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u4", Name: "u4", Email: "u2@example.com"}); err != nil {
		t.Fatalf("expected email to be free after delete: %v", err)
	}
	if err := store.DeleteUser(ctx, "u2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRankingServiceOverRedis(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewUserStore(client)
	service := app.NewRankingService(NewResultStore(client), store, app.Options{})

	a, _ := service.RegisterUser(ctx, "A", "a@example.com", domain.RoleUser)
	b, _ := service.RegisterUser(ctx, "B", "b@example.com", domain.RoleUser)
	for _, sub := range []domain.Submission{
		{UserID: a.ID, QuizID: "q1", Score: 60},
		{UserID: b.ID, QuizID: "q1", Score: 80},
		{UserID: a.ID, QuizID: "q2", Score: 50},
	} {
		if _, _, err := service.Submit(ctx, sub); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	lb, err := service.GetLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != a.ID || lb.Entries[0].TotalScore != 110 {
		t.Fatalf("expected A leading with 110, got %+v", lb.Entries)
	}

	before, _ := store.ListUsers(ctx)
	if _, err := service.RecomputeAll(ctx); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	after, _ := store.ListUsers(ctx)
	for i := range before {
		if !before[i].Stats.LastUpdated.Equal(after[i].Stats.LastUpdated) || !before[i].Stats.SameAggregate(after[i].Stats) {
			t.Fatalf("repeated pass changed stats: %+v vs %+v", before[i].Stats, after[i].Stats)
		}
	}
}

func newTestStore(t *testing.T) (*miniredis.Miniredis, *UserStore) {
	t.Helper()
	mr, client := newTestClient(t)
	return mr, NewUserStore(client)
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
