package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/cache"
    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/database"
    "github.com/iliyamo/community-events/internal/handler"
    "github.com/iliyamo/community-events/internal/notify"
    "github.com/iliyamo/community-events/internal/queue"
    "github.com/iliyamo/community-events/internal/repository"
    "github.com/iliyamo/community-events/internal/router"
    "github.com/iliyamo/community-events/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Config) (*zap.Logger, error) {
    if cfg.IsDev() {
        return zap.NewDevelopment()
    }
    return zap.NewProduction()
}

func main() {
    cfg, err := config.Load()
    if err != nil {
        // no logger yet
        _, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
        os.Exit(1)
    }
    logger, err := newLogger(cfg)
    if err != nil {
        _, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
        os.Exit(1)
    }
    defer func() { _ = logger.Sync() }()

    if err := run(cfg, logger); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}

func run(cfg config.Config, logger *zap.Logger) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg.DB)
    if err != nil {
        return err
    }
    defer db.Close()
    if err := database.Migrate(ctx, db); err != nil {
        return err
    }

    rdb := config.NewRedisClient(cfg.Redis, logger.Named("redis"))
    if rdb != nil {
        defer rdb.Close()
    }
    store := cache.New(rdb, cfg.Cache, logger.Named("cache"))

    sinks := []notify.Sink{notify.NewCacheInvalidator(store)}
    publisher := queue.NewPublisher(cfg.AMQP, logger.Named("amqp"))
    if publisher != nil {
        defer publisher.Close()
        sinks = append(sinks, publisher)
    }
    dispatcher := notify.NewDispatcher(logger.Named("notify"), 0, sinks...)

    if cfg.AMQP.Enabled && store != nil {
        consumer := queue.NewConsumer(cfg.AMQP, store, logger.Named("amqp"))
        go func() {
            if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                logger.Error("amqp consumer stopped", zap.Error(err))
            }
        }()
    }

    tx := repository.NewTxManager(db)
    eventRepo := repository.NewEventRepo(db)
    regRepo := repository.NewRegistrationRepo(db)
    opts := []service.Option{service.WithNotifier(dispatcher), service.WithLogger(logger.Named("service"))}
    reservations := service.NewReservationService(tx, eventRepo, regRepo, opts...)
    events := service.NewEventService(tx, eventRepo, regRepo, opts...)

    e := router.New(router.Deps{
        Config:        cfg,
        Logger:        logger.Named("http"),
        Redis:         rdb,
        Cache:         store,
        Public:        handler.NewPublicHandler(events, logger),
        Registrations: handler.NewRegistrationHandler(events, reservations, events, logger),
        Admin:         handler.NewAdminHandler(events, reservations, logger),
    })

    addr := ":" + cfg.Port
    errCh := make(chan error, 1)
    go func() {
        logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }

    logger.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Warn("http shutdown", zap.Error(err))
    }
    // deliveries are detached from requests; let them finish before closing the broker
    dispatcher.Wait()
    return nil
}
