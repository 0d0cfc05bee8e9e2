package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"

	"langhub.io/internal/auth"
	"langhub.io/internal/config"
	"langhub.io/internal/httpapi"
	"langhub.io/internal/obs"
	"langhub.io/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to langhub.yaml (default $LANGHUB_CONFIG)")
	flag.Parse()

	log := obs.Logger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.Database.DSN == "" {
		log.Fatal("missing DSN: set database.dsn or LANGHUB_PG_DSN")
	}
	if err := obs.SetLevel(cfg.Log.Level); err != nil {
		log.WithError(err).Fatal("set log level")
	}

	sys := cfg.System()

	obs.Init()
	obs.InitBuildInfo(version, commit, string(sys.Distribution))

	store, err := pg.Open(cfg.Database.DSN, pg.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer store.Close()

	var tokens *auth.TokenIssuer
	if cfg.Auth.TokenSecret != "" {
		tokens, err = auth.NewTokenIssuer(cfg.Auth.TokenSecret, auth.WithIssuer(cfg.Auth.Issuer))
		if err != nil {
			log.WithError(err).Fatal("token issuer")
		}
	} else {
		log.Warn("auth.token_secret is empty, bearer tokens are disabled")
	}

	resolver, err := auth.NewResolver(store, tokens, sys, log)
	if err != nil {
		log.WithError(err).Fatal("resolver")
	}
	members, err := auth.NewMemberService(store)
	if err != nil {
		log.WithError(err).Fatal("member service")
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	api := httpapi.New(probe, version, resolver, members, httpapi.Options{
		RateBurst:     cfg.RateLimit.Burst,
		RatePerSecond: cfg.RateLimit.PerSecond,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		TrustProxy:    cfg.HTTP.TrustProxy,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		grpcSrv    *grpc.Server
		grpcHealth *httpapi.GRPCServer
	)
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen")
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(httpapi.UnaryLogging(log)))
		grpcHealth = httpapi.NewGRPCServer(probe, version)
		grpcHealth.Register(grpcSrv)
		_ = grpcHealth.Refresh(ctx)
		go grpcHealth.Watch(ctx, 10*time.Second)
		go func() {
			log.WithField("addr", cfg.GRPC.Addr).Info("grpc health listening")
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Error("grpc serve")
			}
		}()
	}

	go func() {
		log.WithFields(map[string]any{
			"version":      version,
			"addr":         srv.Addr,
			"distribution": string(sys.Distribution),
		}).Info("starting langhub-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcHealth.Shutdown()
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	log.Info("stopped")
}
