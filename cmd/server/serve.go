package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"homecare-dashboard/internal/config"
	"homecare-dashboard/internal/handler"
	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/probe"
	"homecare-dashboard/internal/reminder"
	"homecare-dashboard/internal/report"
	"homecare-dashboard/internal/session"
	"homecare-dashboard/internal/storage"
	"homecare-dashboard/internal/store"
)

const (
	probeInterval   = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard",
	RunE:  runServe,
}

func openSessions(cfg *config.Config, log *logrus.Logger) (session.Store, error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, sessions are kept in memory")
		return session.NewMemory(cfg.SessionTTL), nil
	}
	s, err := session.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	return s, nil
}

func openBlobs(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Blobs, error) {
	if cfg.MinIOEndpoint == "" {
		log.Warn("MINIO_ENDPOINT not set, reports are kept in memory")
		return storage.NewMemory(), nil
	}
	b, err := storage.NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"endpoint": cfg.MinIOEndpoint, "bucket": cfg.MinIOBucket}).Info("connected to minio")
	return b, nil
}

func notifier(ctx context.Context, cfg *config.Config, st *store.Store, log *logrus.Logger) (reminder.Notifier, error) {
	if cfg.FirebaseCredentials == "" {
		log.Warn("FIREBASE_CREDENTIALS_FILE not set, reminders are only logged")
		return reminder.LogNotifier{Log: log}, nil
	}
	return reminder.NewFCM(ctx, cfg.FirebaseCredentials, st, log)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, st, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	// run migrations
	applied, err := st.Migrate(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		log.WithField("migration", name).Info("migration applied")
	}

	sessions, err := openSessions(cfg, log)
	if err != nil {
		return err
	}
	defer sessions.Close()

	blobs, err := openBlobs(ctx, cfg, log)
	if err != nil {
		return err
	}

	rl := middleware.NewRateLimiter(5, 10)
	defer rl.Close()

	h := handler.New(handler.Deps{
		Store:    st,
		Sessions: sessions,
		Reports:  report.NewGenerator(st, blobs, log),
		Limiter:  rl,
		Config:   cfg,
		Log:      log,
	})

	// grpc health probe
	pr := probe.New(st.Ping, probeInterval, log, grpc.ChainUnaryInterceptor(rl.UnaryInterceptor()))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go pr.Watch(ctx)
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("grpc health probe listening")
		if err := pr.Serve(lis); err != nil {
			log.WithError(err).Error("grpc")
		}
	}()

	// medication reminders
	if cfg.RemindersEnabled {
		n, err := notifier(ctx, cfg, st, log)
		if err != nil {
			return err
		}
		rem := reminder.New(st, n, log)
		if err := rem.Start(); err != nil {
			return err
		}
		defer rem.Stop()
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// graceful shutdown
	select {
	case <-ctx.Done():
	case err = <-errc:
		log.WithError(err).Error("http")
	}
	log.Info("shutting down")
	pr.Stop()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpSrv.Shutdown(sctx); serr != nil {
		log.WithError(serr).Warn("http shutdown")
	}
	return err
}
