package cli

import (
	"context"
	"fmt"
	"log"

	"quiz-rank-service/internal/config"
	"github.com/spf13/cobra"
)

// NewRecomputeCmd runs a single full recompute pass against the configured stores.
func NewRecomputeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute every user's stats and rank once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecompute(cmd.Context(), *configPath)
		},
	}
}

func runRecompute(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" && cfg.Redis.Addr == "" {
		return fmt.Errorf("recompute needs a persistent store: set postgres.url or redis.addr")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := newService(st, cfg).RecomputeAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("recomputed %d users", n)
	return nil
}
