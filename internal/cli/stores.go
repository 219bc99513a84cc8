package cli

import (
	"context"
	"database/sql"
	"log"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/config"
	"quiz-rank-service/internal/infra/memory"
	"quiz-rank-service/internal/infra/postgres"
	infraredis "quiz-rank-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// stores holds the backends picked from config and the handles to close.
type stores struct {
	results app.ResultStore
	users   app.UserStore
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores prefers Postgres, then Redis, then memory. Results and users
// always share one backend.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		s.closers = append(s.closers, func() { _ = db.Close() })

		s.results = postgres.NewResultStore(pool)
		s.users = postgres.NewUserStore(db)
		log.Printf("using postgres stores")
		return s, nil
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.results = infraredis.NewResultStore(client)
		s.users = infraredis.NewUserStore(client)
		log.Printf("using redis stores at %s", cfg.Redis.Addr)
		return s, nil
	}

	s.results = memory.NewResultStore()
	s.users = memory.NewUserStore()
	log.Printf("using in-memory stores")
	return s, nil
}

func newService(st *stores, cfg config.Config) *app.RankingService {
	return app.NewRankingService(st.results, st.users, app.Options{
		LeaderboardLimit: cfg.Ranking.LeaderboardLimit,
		Parallelism:      cfg.Ranking.Parallelism,
	})
}
