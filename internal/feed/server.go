package feed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer runs a NATS server inside the process so the presence feed
// works without external infrastructure.
type EmbeddedServer struct {
	ns     *server.Server
	logger *slog.Logger

	startupTimeout time.Duration
	host           string
	port           int
}

// ServerOpt configures an EmbeddedServer
type ServerOpt func(*EmbeddedServer)

// WithStartTimeout sets how long Start waits for the server to accept connections
func WithStartTimeout(d time.Duration) ServerOpt {
	return func(s *EmbeddedServer) {
		s.startupTimeout = d
	}
}

// WithHost sets the listen host
func WithHost(host string) ServerOpt {
	return func(s *EmbeddedServer) {
		s.host = host
	}
}

// WithPort sets the listen port. -1 picks a random free port.
func WithPort(port int) ServerOpt {
	return func(s *EmbeddedServer) {
		s.port = port
	}
}

// NewEmbeddedServer creates, but does not start, a NATS server
func NewEmbeddedServer(logger *slog.Logger, opts ...ServerOpt) (*EmbeddedServer, error) {
	s := &EmbeddedServer{
		logger:         logger.With(slog.String("component", "nats")),
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
		port:           4222,
	}
	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}
	s.ns = ns
	return s, nil
}

// Start runs the server and waits until it accepts connections
func (s *EmbeddedServer) Start() error {
	s.ns.Start()
	if !s.ns.ReadyForConnections(s.startupTimeout) {
		s.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections")
	}
	s.logger.Info("nats server listening", slog.String("url", s.ns.ClientURL()))
	return nil
}

// ClientURL returns the URL clients should connect to
func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit
func (s *EmbeddedServer) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}
