package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesYAML(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  db: 2
ranking:
  leaderboardLimit: 50
  parallelism: 4
  interval: 30s
http:
  allowedOrigins: ["http://localhost:5173"]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Ranking.LeaderboardLimit != 50 || cfg.Ranking.Parallelism != 4 {
		t.Fatalf("unexpected ranking config %+v", cfg.Ranking)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 {
		t.Fatalf("expected one origin, got %v", cfg.HTTP.AllowedOrigins)
	}
	if d := Duration(cfg.Ranking.Interval, 0); d != 30*time.Second {
		t.Fatalf("expected 30s interval, got %s", d)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quizdb")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quizdb" {
		t.Fatalf("expected env override, got %q", cfg.Postgres.URL)
	}
}

func TestDurationFallback(t *testing.T) {
	if d := Duration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %s", d)
	}
	if d := Duration("soon", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback for invalid input, got %s", d)
	}
}
