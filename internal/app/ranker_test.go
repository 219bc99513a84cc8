package app

import (
	"testing"

	"quiz-rank-service/internal/domain"
)

func TestAssignRanksKeyChain(t *testing.T) {
	in := []domain.RankedStats{
		{UserID: "low", Stats: domain.UserStats{TotalScore: 50, QuizzesAttended: 1, AverageScore: 50}},
		{UserID: "more-quizzes", Stats: domain.UserStats{TotalScore: 180, QuizzesAttended: 3, AverageScore: 60}},
		{UserID: "top", Stats: domain.UserStats{TotalScore: 200, QuizzesAttended: 2, AverageScore: 100}},
		{UserID: "fewer-quizzes", Stats: domain.UserStats{TotalScore: 180, QuizzesAttended: 2, AverageScore: 90}},
		{UserID: "idle"},
	}

	out := AssignRanks(in)

	want := []string{"top", "more-quizzes", "fewer-quizzes", "low", "idle"}
	for i, id := range want {
		if out[i].UserID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, out[i].UserID)
		}
		if out[i].Stats.Rank == nil || *out[i].Stats.Rank != i+1 {
			t.Fatalf("position %d: expected rank %d, got %v", i, i+1, out[i].Stats.Rank)
		}
	}
	if in[0].Stats.Rank != nil {
		t.Fatalf("input must not be modified")
	}
}

func TestAssignRanksTieIsDeterministic(t *testing.T) {
	tied := domain.UserStats{TotalScore: 140, QuizzesAttended: 2, AverageScore: 70}
	a := AssignRanks([]domain.RankedStats{{UserID: "y", Stats: tied}, {UserID: "x", Stats: tied}})
	b := AssignRanks([]domain.RankedStats{{UserID: "x", Stats: tied}, {UserID: "y", Stats: tied}})

	for _, out := range [][]domain.RankedStats{a, b} {
		if out[0].UserID != "x" || *out[0].Stats.Rank != 1 || *out[1].Stats.Rank != 2 {
			t.Fatalf("expected x before y regardless of input order, got %+v", out)
		}
	}
}

func TestAssignRanksEmpty(t *testing.T) {
	if out := AssignRanks(nil); len(out) != 0 {
		t.Fatalf("expected no ranks, got %d", len(out))
	}
}
