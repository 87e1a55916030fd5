// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/chaos"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/config"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/fixture"
	"github.com/libranexus/discovery/internal/logging"
	"github.com/libranexus/discovery/internal/resilience"
)

func main() {
	duration := flag.Duration("duration", 30*time.Second, "fault injection time per experiment")
	pause := flag.Duration("pause", 5*time.Second, "pause between experiments")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := gameDay(ctx, cfg, *duration, *pause)
	if err != nil {
		logging.Fatal().Err(err).Msg("game day aborted")
	}
	if failed > 0 {
		logging.Error().Int("failed", failed).Msg("hypotheses violated")
		os.Exit(2)
	}
	logging.Info().Msg("all hypotheses held")
}

func gameDay(ctx context.Context, cfg *config.Config, duration, pause time.Duration) (int, error) {
	var (
		books catalog.Store
		txns  circulation.Store
	)
	if cfg.Store.Driver == "memory" {
		lib, err := fixture.Load(cfg.Store.FixturePath)
		if err != nil {
			return 0, err
		}
		mb, mt, err := lib.MemoryStores()
		if err != nil {
			return 0, err
		}
		books, txns = mb, mt
	} else {
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Store.DatabaseURL)
		if err != nil {
			return 0, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		books, txns = catalog.NewPostgresStore(db), circulation.NewPostgresStore(db)
	}

	target := chaos.Target{Catalog: chaos.NewInjector(), Circulation: chaos.NewInjector()}
	books = catalog.WithBreaker(target.Catalog.Catalog(books), resilience.New("catalog", cfg.Breaker, catalog.ErrBookNotFound))
	txns = circulation.WithBreaker(target.Circulation.Circulation(txns), resilience.New("circulation", cfg.Breaker))
	target.Engine = discovery.NewService(books, txns, discovery.Config{SearchLimit: cfg.Discovery.SearchLimit})

	opts := chaos.DefaultOptions()
	opts.Duration = duration
	opts.Interval = max(duration/15, 100*time.Millisecond)
	opts.Settle = cfg.Breaker.Timeout + 5*time.Second

	engine := chaos.NewEngine()
	engine.Register(chaos.Standard(target, opts)...)
	return engine.RunGameDay(ctx, chaos.GameDay{
		Name:      "discovery resilience",
		Scenarios: engine.Experiments(),
		Pause:     pause,
	})
}
