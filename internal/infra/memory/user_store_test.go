package memory

import (
	"context"
	"testing"
	"time"

	"quiz-rank-service/internal/domain"
)

func TestUserStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	alice := sampleUser("u1", "alice@example.com", time.Unix(100, 0))
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, sampleUser("u2", "alice@example.com", time.Unix(200, 0))); err != domain.ErrUserExists {
		t.Fatalf("expected duplicate email error, got %v", err)
	}

	if err := store.UpdateRole(ctx, "u1", domain.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	got, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", got.Role)
	}

	if err := store.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetUser(ctx, "u1"); err != domain.ErrUserNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserStoreSaveStatsKeepsRank(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, sampleUser("u1", "a@example.com", time.Unix(100, 0)))

	rank := 3
	if err := store.CommitRanks(ctx, []domain.RankedStats{{UserID: "u1", Stats: domain.UserStats{TotalScore: 10, Rank: &rank}}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := store.SaveStats(ctx, "u1", domain.UserStats{QuizzesAttended: 2, TotalScore: 150, AverageScore: 75}); err != nil {
		t.Fatalf("save stats: %v", err)
	}

	got, _ := store.GetUser(ctx, "u1")
	if got.Stats.TotalScore != 150 || got.Stats.Rank == nil || *got.Stats.Rank != 3 {
		t.Fatalf("expected new totals with rank kept, got %+v", got.Stats)
	}
	if err := store.SaveStats(ctx, "missing", domain.UserStats{}); err != domain.ErrUserNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserStoreCommitRanksClearsUnranked(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, sampleUser("u1", "a@example.com", time.Unix(100, 0)))
	_ = store.CreateUser(ctx, sampleUser("u2", "b@example.com", time.Unix(200, 0)))

	one, two := 1, 2
	_ = store.CommitRanks(ctx, []domain.RankedStats{
		{UserID: "u1", Stats: domain.UserStats{Rank: &one}},
		{UserID: "u2", Stats: domain.UserStats{Rank: &two}},
	})
	_ = store.CommitRanks(ctx, []domain.RankedStats{
		{UserID: "u2", Stats: domain.UserStats{Rank: &one}},
		{UserID: "ghost", Stats: domain.UserStats{Rank: &two}},
	})

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" {
		t.Fatalf("expected creation order, got %+v", users)
	}
	if users[0].Stats.Rank != nil {
		t.Fatalf("expected u1 rank cleared, got %d", *users[0].Stats.Rank)
	}
	if users[1].Stats.Rank == nil || *users[1].Stats.Rank != 1 {
		t.Fatalf("expected u2 rank 1, got %+v", users[1].Stats)
	}
}

func sampleUser(id, email string, createdAt time.Time) domain.User {
	return domain.User{
		ID:        id,
		Name:      "User " + id,
		Email:     email,
		Role:      domain.RoleUser,
		CreatedAt: createdAt,
	}
}
