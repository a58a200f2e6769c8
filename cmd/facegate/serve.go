package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/BrandonDHaskell/facegate/internal/auth"
	"github.com/BrandonDHaskell/facegate/internal/embedding"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/evidence"
	"github.com/BrandonDHaskell/facegate/internal/grpcapi"
	"github.com/BrandonDHaskell/facegate/internal/httpapi"
	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	Long: `Start the HTTP API, the gRPC AccessControl service and the evidence
pruner. Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "How long to drain in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	registry := service.NewIdentityRegistry(st.identities, cfg.Matcher.Dimension, logger.Named("registry"), m)
	engine := service.NewDecisionEngine(registry, st.audit, service.EngineConfig{
		Dimension:   cfg.Matcher.Dimension,
		ScanTimeout: cfg.Matcher.ScanTimeout,
	}, logger.Named("decision"), m)
	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)

	var (
		saver  service.EvidenceSaver
		reader httpapi.EvidenceReader
		pruner *service.EvidencePruner
	)
	if cfg.Evidence.Dir != "" {
		ev, err := evidence.NewStore(cfg.Evidence.Dir)
		if err != nil {
			return err
		}
		saver, reader = ev, ev
		pruner = service.NewEvidencePruner(ev, service.PrunerConfig{
			RetentionDays: cfg.Evidence.RetentionDays,
			IntervalHours: cfg.Evidence.PruneIntervalHours,
		}, logger.Named("pruner"), m)
	}

	access := service.NewAccessService(engine, extractor, saver, service.AccessPolicy{
		Tolerance:      cfg.Matcher.Tolerance,
		MinAccessLevel: cfg.Matcher.MinAccessLevel,
	}, logger.Named("access"), m)

	var authority *auth.Authority
	if cfg.Auth.Enabled {
		authority = auth.NewAuthority(cfg.Auth.SigningKey, cfg.Auth.Issuer)
	} else {
		logger.Warn("authentication disabled; every route is open")
	}

	httpDeps := httpapi.Dependencies{
		Logger:         logger.Named("http"),
		Addr:           cfg.HTTPAddr,
		AccessService:  access,
		Registry:       registry,
		Audit:          st.audit,
		Extractor:      extractor,
		Evidence:       reader,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	grpcDeps := grpcapi.Dependencies{
		Logger:        logger.Named("grpc"),
		Addr:          cfg.GRPCAddr,
		AccessService: access,
	}
	if authority != nil {
		httpDeps.Authorizer = authority
		grpcDeps.Authorizer = authority
	}
	httpSrv := httpapi.NewServer(httpDeps)
	grpcSrv := grpcapi.NewServer(grpcDeps)

	g, gctx := errgroup.WithContext(ctx)

	if pruner != nil {
		pruner.Start(gctx)
		defer pruner.Stop()
	}

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcSrv.Start(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), mustGetDuration(cmd, "shutdown-timeout"))
		defer cancel()
		grpcSrv.Stop(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
