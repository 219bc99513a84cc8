package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"quiz-rank-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultLeaderboardLimit = 100
	defaultRecentResults    = 5
	defaultParallelism      = 8
)

// ResultStore is the append-only submission log.
type ResultStore interface {
	Append(ctx context.Context, rec domain.SubmissionRecord) error
	ListByUser(ctx context.Context, userID string) ([]domain.SubmissionRecord, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	Summary(ctx context.Context) (domain.ResultSummary, error)
}

// UserStore persists users and their embedded stats.
//
// SaveStats writes the aggregate fields and LastUpdated but never the rank.
// CommitRanks must apply the whole slice as one unit: listed users get their
// stats and rank, every other stored user gets a nil rank, and ids that no
// longer exist are skipped.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
	DeleteUser(ctx context.Context, userID string) error
	SaveStats(ctx context.Context, userID string, stats domain.UserStats) error
	CommitRanks(ctx context.Context, ranked []domain.RankedStats) error
}

// Options tunes a RankingService. Zero values pick defaults.
type Options struct {
	LeaderboardLimit int
	Parallelism      int
	// IsAdmin decides who is excluded from ranking; defaults to the admin role.
	IsAdmin func(domain.User) bool
	Now     func() time.Time
}

// RankingService maintains user stats and the global rank table.
type RankingService struct {
	results     ResultStore
	users       UserStore
	isAdmin     func(domain.User) bool
	now         func() time.Time
	limit       int
	parallelism int

	gate  *passGate
	reads singleflight.Group
	hub   *hub
}

func NewRankingService(results ResultStore, users UserStore, opts Options) *RankingService {
	s := &RankingService{
		results:     results,
		users:       users,
		isAdmin:     opts.IsAdmin,
		now:         opts.Now,
		limit:       opts.LeaderboardLimit,
		parallelism: opts.Parallelism,
		gate:        newPassGate(),
		hub:         newHub(),
	}
	if s.isAdmin == nil {
		s.isAdmin = func(u domain.User) bool { return u.Role == domain.RoleAdmin }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.limit <= 0 {
		s.limit = defaultLeaderboardLimit
	}
	if s.parallelism <= 0 {
		s.parallelism = defaultParallelism
	}
	return s
}

// RegisterUser creates an account with zeroed stats and no rank.
func (s *RankingService) RegisterUser(ctx context.Context, name, email string, role domain.Role) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return domain.User{}, domain.ErrInvalidUser
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}

	now := s.now()
	user := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		Stats:     domain.UserStats{LastUpdated: now},
		CreatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Submit validates and appends a quiz result, refreshes the submitter's stats
// and returns once a full recompute pass covering the new record has committed.
func (s *RankingService) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionRecord, domain.UserStats, error) {
	sub.UserID = strings.TrimSpace(sub.UserID)
	sub.QuizID = strings.TrimSpace(sub.QuizID)
	if err := validateSubmission(sub); err != nil {
		return domain.SubmissionRecord{}, domain.UserStats{}, err
	}
	if _, err := s.users.GetUser(ctx, sub.UserID); err != nil {
		return domain.SubmissionRecord{}, domain.UserStats{}, err
	}

	rec := domain.SubmissionRecord{
		ID:             uuid.NewString(),
		UserID:         sub.UserID,
		QuizID:         sub.QuizID,
		Score:          sub.Score,
		TotalQuestions: sub.TotalQuestions,
		CorrectAnswers: sub.CorrectAnswers,
		SubmittedAt:    s.now(),
	}
	if err := s.results.Append(ctx, rec); err != nil {
		return domain.SubmissionRecord{}, domain.UserStats{}, err
	}
	if _, err := s.UpdateOne(ctx, rec.UserID); err != nil {
		return rec, domain.UserStats{}, err
	}
	if err := s.recomputeCovering(ctx); err != nil {
		return rec, domain.UserStats{}, err
	}

	stats, err := s.GetStats(ctx, rec.UserID)
	return rec, stats, err
}

func validateSubmission(sub domain.Submission) error {
	if sub.UserID == "" || sub.QuizID == "" {
		return fmt.Errorf("%w: user and quiz are required", domain.ErrInvalidSubmission)
	}
	if sub.Score < 0 || sub.Score > 100 {
		return fmt.Errorf("%w: score %d outside [0,100]", domain.ErrInvalidSubmission, sub.Score)
	}
	return nil
}

// UpdateOne recomputes a single user's aggregate from their full history.
// The stored rank is left as is.
func (s *RankingService) UpdateOne(ctx context.Context, userID string) (domain.UserStats, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	records, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}

	stats := Aggregate(records, s.now())
	if err := s.users.SaveStats(ctx, userID, stats); err != nil {
		return domain.UserStats{}, err
	}
	stats.Rank = user.Stats.Rank
	return stats, nil
}

// RecomputeAll runs one full aggregate-then-rank pass and returns the number
// of ranked users. Nothing is committed if any user fails to aggregate.
func (s *RankingService) RecomputeAll(ctx context.Context) (int, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.gate.release()
	return s.runPass(ctx)
}

// recomputeCovering waits until a pass that started after this call has
// committed. A pass that completed while we queued may already cover us.
func (s *RankingService) recomputeCovering(ctx context.Context) error {
	ticket := s.gate.requested.Add(1)
	if err := s.gate.acquire(ctx); err != nil {
		return err
	}
	defer s.gate.release()

	if s.gate.covered >= ticket {
		return nil
	}
	_, err := s.runPass(ctx)
	return err
}

// runPass must be called with the gate held.
func (s *RankingService) runPass(ctx context.Context) (int, error) {
	covers := s.gate.requested.Load()
	started := time.Now()

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		log.Printf("[RANK] pass aborted: %v", err)
		return 0, err
	}

	previous := make(map[string]domain.UserStats, len(users))
	eligible := make([]domain.User, 0, len(users))
	for _, u := range users {
		if s.isAdmin(u) {
			continue
		}
		previous[u.ID] = u.Stats
		eligible = append(eligible, u)
	}

	now := s.now()
	standings := make([]domain.RankedStats, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, u := range eligible {
		g.Go(func() error {
			records, err := s.results.ListByUser(gctx, u.ID)
			if err != nil {
				return fmt.Errorf("aggregate user %s: %w", u.ID, err)
			}
			standings[i] = domain.RankedStats{UserID: u.ID, Stats: Aggregate(records, now)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[RANK] pass aborted: %v", err)
		return 0, err
	}

	ranked := AssignRanks(standings)
	for i := range ranked {
		if prev, ok := previous[ranked[i].UserID]; ok && prev.SameAggregate(ranked[i].Stats) {
			ranked[i].Stats.LastUpdated = prev.LastUpdated
		}
	}

	if err := s.users.CommitRanks(ctx, ranked); err != nil {
		log.Printf("[RANK] commit failed: %v", err)
		return 0, err
	}
	s.gate.covered = covers
	log.Printf("[RANK] ranked %d users in %s", len(ranked), time.Since(started))

	s.publish(ctx)
	return len(ranked), nil
}

func (s *RankingService) publish(ctx context.Context) {
	lb, err := s.buildLeaderboard(ctx, s.limit)
	if err != nil {
		log.Printf("[RANK] leaderboard broadcast skipped: %v", err)
		return
	}
	s.hub.publish(lb)
}

// Run recomputes on a fixed interval until ctx is done.
func (s *RankingService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RecomputeAll(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[RANK] scheduled recompute failed: %v", err)
			}
		}
	}
}

// GetStats returns the stored stats for a user.
func (s *RankingService) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	return user.Stats, nil
}

// ListUsers returns every account, newest first.
func (s *RankingService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// UpdateRole changes a user's role and reranks, since eligibility may change.
func (s *RankingService) UpdateRole(ctx context.Context, userID string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return domain.User{}, err
	}
	if err := s.recomputeCovering(ctx); err != nil {
		return domain.User{}, err
	}
	return s.users.GetUser(ctx, userID)
}

// DeleteUser cascades to the user's submissions and closes the rank gap.
func (s *RankingService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	// The account is gone, so leftover results can no longer reach a pass.
	removed, err := s.results.DeleteByUser(ctx, userID)
	if err != nil {
		log.Printf("[RANK] deleted user %s, result cleanup failed: %v", userID, err)
	} else {
		log.Printf("[RANK] deleted user %s and %d results", userID, removed)
	}
	return s.recomputeCovering(ctx)
}

// RecentResults lists a user's latest submissions, newest first.
func (s *RankingService) RecentResults(ctx context.Context, userID string, limit int) ([]domain.SubmissionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentResults
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	records, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].SubmittedAt.After(records[j].SubmittedAt)
		}
		return records[i].ID > records[j].ID
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Overview returns the admin dashboard counters.
func (s *RankingService) Overview(ctx context.Context) (domain.Overview, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	summary, err := s.results.Summary(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.Overview{
		TotalUsers:   len(users),
		TotalResults: summary.TotalResults,
		AvgScore:     int(math.Round(summary.AverageScore)),
	}, nil
}

// Subscribe streams the leaderboard after every committed pass. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *RankingService) Subscribe(_ context.Context) (<-chan domain.Leaderboard, func()) {
	return s.hub.subscribe()
}

// passGate serialises recompute passes. requested counts submitters waiting
// for coverage; covered is the highest ticket a committed pass has seen.
type passGate struct {
	sem       chan struct{}
	requested atomic.Uint64
	covered   uint64 // guarded by sem
}

func newPassGate() *passGate {
	return &passGate{sem: make(chan struct{}, 1)}
}

func (g *passGate) acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *passGate) release() {
	<-g.sem
}
