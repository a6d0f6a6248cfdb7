// Command ledgerd runs a development ledger node: an in-memory ledger served
// over HTTP, a blob pinning endpoint, and a relay that publishes every ledger
// event to the configured broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"dim/internal/blobstore"
	"dim/internal/ledger/ledgerapi"
	"dim/internal/ledger/memledger"
	"dim/internal/ledger/relay"
	"dim/internal/platform/amqp"
	"dim/internal/platform/config"
	"dim/internal/platform/health"
	"dim/internal/platform/kafka"
	"dim/internal/platform/kafka/producer"
	"dim/internal/platform/logger"
	"dim/internal/platform/metrics"
	"dim/pkg/domain"
	"dim/pkg/platform/middleware/request"
)

const (
	callMaxSkew     = time.Minute
	shutdownTimeout = 10 * time.Second
	topicPartitions = 1
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("ledger node stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("ledger node stopped")
}

func run(log *slog.Logger) error {
	cfg, err := config.LedgerNodeFromEnv()
	if err != nil {
		return err
	}
	admin, err := domain.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return fmt.Errorf("ADMIN_ADDRESS: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger := memledger.New(admin)
	checks := health.New(cfg.Environment)

	publishers, closeAll, err := connectBroker(ctx, cfg.Events, checks, log)
	if err != nil {
		return err
	}
	defer closeAll()

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	checks.Register(r)
	r.Handle("/metrics", metrics.Handler())
	r.Group(func(r chi.Router) {
		r.Use(ledgerapi.RequireSignedCall(log, callMaxSkew, time.Now))
		ledgerapi.NewHandler(ledger, log).Register(r)
	})
	blobstore.NewHandler(blobstore.NewInMemoryStore(), log).Register(r)

	metrics.BuildInfo(health.Version, cfg.Environment, config.ModeMemory, cfg.Events.Mode)
	srv := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ledger node", "addr", cfg.Addr, "admin", admin, "events_mode", cfg.Events.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if len(publishers) > 0 {
		g.Go(func() error {
			err := relay.New(ledger, log, publishers...).Run(gctx, 0)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// connectBroker connects the broker named by EVENTS_MODE.
func connectBroker(ctx context.Context, cfg config.Events, checks *health.Handler, log *slog.Logger) ([]relay.Publisher, func(), error) {
	switch cfg.Mode {
	case config.ModeKafka:
		if err := kafka.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, topicPartitions); err != nil {
			return nil, nil, fmt.Errorf("ensure kafka topic: %w", err)
		}
		p, err := producer.New(producer.Config{Brokers: cfg.KafkaBrokers, Acks: "all"}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		checks.Add(kafka.NewHealthChecker(cfg.KafkaBrokers, cfg.KafkaTopic))
		return []relay.Publisher{relay.NewKafkaPublisher(p, cfg.KafkaTopic)}, func() { _ = p.Close() }, nil
	case config.ModeAMQP:
		conn, err := amqp.Dial(ctx, cfg.AMQPURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect amqp: %w", err)
		}
		p, err := amqp.NewPublisher(conn, cfg.AMQPExchange)
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("amqp publisher: %w", err)
		}
		checks.Add(amqp.NewHealthChecker(conn))
		return []relay.Publisher{relay.NewAMQPPublisher(p)}, func() {
			_ = p.Close()
			_ = conn.Close()
		}, nil
	default:
		return nil, func() {}, nil
	}
}
