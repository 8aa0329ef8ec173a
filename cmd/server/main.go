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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/rl1809/stock-reconciler/internal/adapter/handler"
	"github.com/rl1809/stock-reconciler/internal/app"
	"github.com/rl1809/stock-reconciler/internal/config"
	"github.com/rl1809/stock-reconciler/internal/logger"
)

const (
	serviceName     = "warehouse-server"
	healthInterval  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(ctx, cfg, app.Options{ServiceName: serviceName, Registerer: reg})
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "failed to start", err)
		os.Exit(1)
	}
	defer a.Close()
	logg := a.Logger

	// gRPC health
	grpcServer := grpc.NewServer()
	grpcHandler := handler.NewGRPCHandler(a.Store, logg)
	grpcHandler.Register(grpcServer)
	go grpcHandler.Watch(ctx, healthInterval)

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		logg.Error(ctx, "failed to listen", err)
		os.Exit(1)
	}
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.GRPCAddr), "gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logg.Error(ctx, "gRPC server error", err)
		}
	}()

	// HTTP
	httpHandler := handler.NewHTTPHandler(a.Store, a.Store, a.Runner, a.Store, logg)
	httpServer := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           httpHandler.Routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.HTTPAddr), "HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "HTTP server error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Warn(shutdownCtx, "HTTP shutdown incomplete", err)
	}
	logg.Info(shutdownCtx, "HTTP server stopped")

	grpcServer.GracefulStop()
	logg.Info(shutdownCtx, "gRPC server stopped")
}
