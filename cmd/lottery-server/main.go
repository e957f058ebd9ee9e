package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/coordinator"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/metrics"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/publisher"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/repo"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/server"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/session"
	"github.com/radieske/lottery-agency-poc/internal/shared/cache"
	"github.com/radieske/lottery-agency-poc/internal/shared/config"
	"github.com/radieske/lottery-agency-poc/internal/shared/db"
	"github.com/radieske/lottery-agency-poc/internal/shared/kafka"
	"github.com/radieske/lottery-agency-poc/internal/shared/logger"
	sharedmetrics "github.com/radieske/lottery-agency-poc/internal/shared/metrics"
	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lottery-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM): só cancela o ctx
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var checks []sharedmetrics.HealthFunc

	// Store de apostas
	store, closeStore, err := openStore(ctx, cfg, &checks)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Publicação opcional do resultado: Redis (ganhadores + Pub/Sub) e Kafka
	fanout := &publisher.Fanout{
		Log:      log,
		Timeout:  3 * time.Second,
		Agencies: cfg.Agencies,
		OnError:  m.OnPublishError,
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		fanout.Publishers = append(fanout.Publishers, publisher.NewRedisPublisher(rdb, cfg.RedisWinnersTTL))
		checks = append(checks, redisHealth(rdb))
	}
	if cfg.KafkaBrokers != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDraw)
		defer w.Close()
		fanout.Publishers = append(fanout.Publishers, publisher.NewKafkaPublisher(w))
	}
	// roda antes de fechar redis/kafka: publicações do sorteio terminam primeiro
	defer fanout.Wait()

	coord := coordinator.New(
		log,
		store,
		lottery.LuckyNumber(cfg.LuckyNumber),
		cfg.Agencies,
		m.CoordinatorHooks(fanout.Dispatch),
	)

	// metrics/health
	if cfg.MetricsPort != "" {
		ms := sharedmetrics.StartMetricsServer(cfg.MetricsPort, nil, allHealthy(checks), log)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = ms.Shutdown(sctx)
		}()
	}

	hooks := m.SessionHooks()
	handler := func(ctx context.Context, id string, conn net.Conn) {
		_ = session.New(id, conn, coord, log, hooks).Run(ctx)
	}

	srv := server.New(server.Config{Port: cfg.Port, Backlog: cfg.ListenBacklog}, handler, log)
	log.Info("lottery-server starting",
		zap.String("port", cfg.Port),
		zap.Int("agencies", cfg.Agencies),
		zap.String("store", cfg.StoreBackend),
		zap.Int("publishers", len(fanout.Publishers)),
	)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	log.Info("lottery-server stopped",
		zap.String("action", "exit"),
		zap.Bool("drawn", coord.Drawn()),
		zap.Int("agencies_finished", coord.Finished()),
	)
	return nil
}

// openStore abre o backend configurado e registra o health check correspondente
func openStore(ctx context.Context, cfg config.Config, checks *[]sharedmetrics.HealthFunc) (repo.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		p := repo.NewPostgres(pg)
		if err := p.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		*checks = append(*checks, pg.PingContext)
		return p, func() { _ = pg.Close() }, nil
	case config.StoreMemory:
		return repo.NewMemory(), func() {}, nil
	default:
		s, err := repo.NewCSVStore(cfg.BetsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func redisHealth(rdb *redis.Client) sharedmetrics.HealthFunc {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

func allHealthy(checks []sharedmetrics.HealthFunc) sharedmetrics.HealthFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, check := range checks {
			if err := check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
