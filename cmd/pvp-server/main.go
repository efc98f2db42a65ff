package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-pvp-server/internal/archive"
	appcfg "github.com/park285/cheese-pvp-server/internal/config"
	"github.com/park285/cheese-pvp-server/internal/msgcat"
	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/internal/rules"
	"github.com/park285/cheese-pvp-server/internal/session"
	"github.com/park285/cheese-pvp-server/internal/wsserver"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.OptionsFromEnv()); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("catalog_init_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 결과 저장소: 설정된 것만 연결
	var sinks []archive.Sink
	var results wsserver.ResultReader
	if cfg.RedisURL != "" {
		rdb, err := archive.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer rdb.Close()
		store := archive.NewRedisStore(rdb, cfg.ArchiveTTL, cfg.ArchiveHistoryLimit)
		sinks = append(sinks, store)
		results = store
	}
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_init_error", zap.Error(err))
		}
		defer repo.Close()
		sinks = append(sinks, repo)
	}
	if cfg.ResultWebhookURL != "" {
		sinks = append(sinks, archive.NewWebhook(cfg.ResultWebhookURL))
	}
	archiver := archive.NewArchiver(cfg.ArchiveBuffer, sinks...)

	hub := wsserver.NewHub()
	mgr := session.NewManager(rules.NewChess(), hub,
		session.WithCatalog(cat),
		session.WithRecorder(archiver),
	)
	srv := wsserver.NewServer(hub, mgr, cat, wsserver.Options{
		OriginPatterns: cfg.WSOriginPatterns,
		ReadLimit:      cfg.WSReadLimit,
		SendBuffer:     cfg.WSSendBuffer,
		PingInterval:   cfg.WSPingInterval,
	})
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           wsserver.NewMux(srv, results),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error { return archiver.Run(gctx) })
	g.Go(func() error {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.Int("sinks", len(sinks)))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server_exit", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server_stopped", zap.Int64("archive_dropped", archiver.Dropped()))
}
