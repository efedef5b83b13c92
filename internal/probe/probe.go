// Package probe serves the standard grpc.health.v1 service so orchestrators
// can check the dashboard's database connectivity over gRPC.
package probe

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported next to the overall ("") status.
const Service = "homecare.Dashboard"

type Checker func(ctx context.Context) error

type Probe struct {
	srv      *grpc.Server
	health   *health.Server
	check    Checker
	interval time.Duration
	log      *logrus.Entry
}

func New(check Checker, interval time.Duration, log *logrus.Logger, opts ...grpc.ServerOption) *Probe {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Probe{srv: srv, health: hs, check: check, interval: interval, log: log.WithField("job", "probe")}
}

// Refresh runs the check once and publishes the result.
func (p *Probe) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := p.check(ctx); err != nil {
		p.log.WithError(err).Warn("health check failed")
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.health.SetServingStatus("", st)
	p.health.SetServingStatus(Service, st)
	return st
}

// Watch refreshes immediately and then every interval until ctx ends.
func (p *Probe) Watch(ctx context.Context) {
	p.Refresh(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Refresh(ctx)
		}
	}
}

func (p *Probe) Serve(lis net.Listener) error {
	return p.srv.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (p *Probe) Stop() {
	p.health.Shutdown()
	p.srv.GracefulStop()
}
