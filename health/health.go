// Package health exposes grpc.health.v1 for the site and its backends.
package health

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether a backend is usable.
type Check func(ctx context.Context) error

// Logger receives backend state changes.
type Logger interface {
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
}

// Server is a gRPC server carrying the health service and reflection.
// The empty service name always reports SERVING while the process runs;
// each named check is reported under its own name.
type Server struct {
	srv    *grpc.Server
	hs     *grpchealth.Server
	checks map[string]Check
	logger Logger

	mu   sync.Mutex
	last map[string]bool
}

// New registers the health service and reflection. logger may be nil.
func New(checks map[string]Check, logger Logger) *Server {
	s := &Server{
		srv:    grpc.NewServer(),
		hs:     grpchealth.NewServer(),
		checks: checks,
		logger: logger,
		last:   make(map[string]bool),
	}
	healthpb.RegisterHealthServer(s.srv, s.hs)
	reflection.Register(s.srv)
	s.hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for name := range checks {
		s.hs.SetServingStatus(name, healthpb.HealthCheckResponse_UNKNOWN)
	}
	return s
}

// Services returns the checked backend names in sorted order.
func (s *Server) Services() []string {
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every check once with timeout and updates statuses.
func (s *Server) CheckAll(ctx context.Context, timeout time.Duration) {
	for _, name := range s.Services() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := s.checks[name](cctx)
		cancel()
		s.set(name, err)
	}
}

func (s *Server) set(name string, err error) {
	ok := err == nil
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus(name, status)

	s.mu.Lock()
	prev, seen := s.last[name]
	s.last[name] = ok
	s.mu.Unlock()
	if s.logger == nil || (seen && prev == ok) {
		return
	}
	if ok {
		s.logger.Infof("health: %s serving", name)
	} else {
		s.logger.Warnf("health: %s not serving: %v", name, err)
	}
}

// Run checks every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.CheckAll(ctx, interval/2)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckAll(ctx, interval/2)
		}
	}
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Start listens on addr in the background and returns a shutdown function.
func (s *Server) Start(addr string) (func(context.Context) error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() { _ = s.srv.Serve(lis) }()

	return func(ctx context.Context) error {
		s.hs.Shutdown()
		done := make(chan struct{})
		go func() { s.srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			s.srv.Stop()
			return ctx.Err()
		}
	}, nil
}

// Stop stops the server immediately.
func (s *Server) Stop() {
	s.srv.Stop()
}
