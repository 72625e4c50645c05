package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"roombook/backend/internal/config"
	"roombook/backend/internal/events"
	"roombook/backend/internal/logging"
	"roombook/backend/internal/service/bookings"
	"roombook/backend/internal/store"
	"roombook/backend/internal/store/postgres"
	"roombook/backend/internal/store/rediscache"
	"roombook/backend/internal/telemetry"
	grpcTransport "roombook/backend/internal/transport/grpc"
	"roombook/backend/internal/transport/ops"
)

const serviceName = "roombook-server"

func main() {
	log := logging.New(os.Stdout, logging.Options{Level: "info", Service: serviceName})
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any(logging.ErrKey, err))
		os.Exit(1)
	}

	log = logging.New(os.Stdout, logging.Options{Level: cfg.LogLevel, AddSource: cfg.LogAddSource, Service: serviceName})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any(logging.ErrKey, err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("ops_addr", cfg.OpsAddr),
		slog.String("log_level", cfg.LogLevel),
	)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    true,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("tracer shutdown failed", slog.Any(logging.ErrKey, err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any(logging.ErrKey, err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any(logging.ErrKey, err))
		}
	}()

	repo := postgres.NewBookingRepo(db)
	checks := map[string]ops.Check{
		"database": repo.Ping,
	}

	var rooms store.RoomDirectory = postgres.NewRoomRepo(db)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any(logging.ErrKey, err))
			}
		}()
		rooms = rediscache.New(rooms, rdb, cfg.RedisRoomTTL, log)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("room cache enabled", slog.String("redis_addr", cfg.RedisAddr), slog.Duration("ttl", cfg.RedisRoomTTL))
	}

	publisher, err := events.New(events.Config{
		Backends:          cfg.EventBackends,
		NATSURL:           cfg.NATSURL,
		NATSSubjectPrefix: cfg.NATSSubjectPrefix,
		KafkaBrokers:      cfg.KafkaBrokers,
		KafkaTopic:        cfg.KafkaTopic,
		AMQPURL:           cfg.AMQPURL,
		AMQPExchange:      cfg.AMQPExchange,
	})
	if err != nil {
		log.Error("event publisher setup failed", slog.Any(logging.ErrKey, err), slog.Any("backends", cfg.EventBackends))
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any(logging.ErrKey, err))
		}
	}()

	svc := bookings.NewService(repo, rooms,
		bookings.WithPublisher(publisher),
		bookings.WithLogger(log),
		bookings.WithPolicy(bookings.Policy{
			MinDuration:    cfg.MinBookingDuration,
			DefaultHorizon: cfg.DefaultHorizon,
			MaxOccurrences: cfg.MaxOccurrences,
		}),
	)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.LogContextInterceptor(),
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
		),
	)
	health := grpcTransport.Register(grpcServer, grpcTransport.NewServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any(logging.ErrKey, err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	opsServer := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           ops.NewHandler(checks, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("ops server started", slog.String("ops_addr", cfg.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		health.Shutdown()

		httpCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := opsServer.Shutdown(httpCtx); err != nil {
			log.Warn("ops server shutdown failed", slog.Any(logging.ErrKey, err))
		}
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
		return nil
	})

	return g.Wait()
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
