package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/stock-reconciler/internal/logger"
)

// ServiceName is the gRPC health service name reported for the warehouse.
const ServiceName = "warehouse.StockReconciler"

// GRPCHandler serves grpc.health.v1 and keeps the status in line with the
// storage backend.
type GRPCHandler struct {
	health *health.Server
	store  Pinger
	logger *logger.Logger
}

func NewGRPCHandler(store Pinger, l *logger.Logger) *GRPCHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &GRPCHandler{
		health: health.NewServer(),
		store:  store,
		logger: l,
	}
}

func (h *GRPCHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// Probe pings storage once and updates the served status.
func (h *GRPCHandler) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn(ctx, "storage ping failed", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch probes every interval until ctx is done, then marks the service as
// shutting down.
func (h *GRPCHandler) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}
