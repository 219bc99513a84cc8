package memory

import (
	"context"
	"testing"

	"quiz-rank-service/internal/domain"
)

func TestResultStoreAppendListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	_ = store.Append(ctx, domain.SubmissionRecord{ID: "r1", UserID: "u1", QuizID: "q1", Score: 60})
	_ = store.Append(ctx, domain.SubmissionRecord{ID: "r2", UserID: "u1", QuizID: "q1", Score: 90})
	_ = store.Append(ctx, domain.SubmissionRecord{ID: "r3", UserID: "u2", QuizID: "q1", Score: 30})

	records, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r1" {
		t.Fatalf("expected two records in append order, got %+v", records)
	}

	summary, _ := store.Summary(ctx)
	if summary.TotalResults != 3 || summary.AverageScore != 60 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	removed, err := store.DeleteByUser(ctx, "u1")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d (%v)", removed, err)
	}
	if records, _ := store.ListByUser(ctx, "u1"); len(records) != 0 {
		t.Fatalf("expected no records left, got %d", len(records))
	}
}
