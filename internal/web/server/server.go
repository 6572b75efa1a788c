package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Connection is one listener of the server. Labels scope which hooks apply.
type Connection struct {
	Address string   `mapstructure:"address"`
	Labels  []string `mapstructure:"labels"`
}

// Config holds server configuration
type Config struct {
	Connections []Connection

	// Handler serves every connection
	Handler http.Handler

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration

	MaxHeaderBytes int
}

// DefaultConfig returns a single-connection configuration on :3000
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Connections:       []Connection{{Address: ":3000"}},
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Server runs one http.Server per connection, all sharing one handler
type Server struct {
	config  *Config
	logger  *zap.Logger
	servers []*http.Server

	mu        sync.Mutex
	listeners []net.Listener
}

// New creates a server for the configured connections
func New(config *Config, logger *zap.Logger) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if len(config.Connections) == 0 {
		return nil, fmt.Errorf("at least one connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]bool, len(config.Connections))
	servers := make([]*http.Server, 0, len(config.Connections))
	for _, conn := range config.Connections {
		if conn.Address == "" {
			return nil, fmt.Errorf("connection address cannot be empty")
		}
		if seen[conn.Address] {
			return nil, fmt.Errorf("connection %s declared twice", conn.Address)
		}
		seen[conn.Address] = true

		servers = append(servers, &http.Server{
			Addr:              conn.Address,
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
		})
	}

	return &Server{config: config, logger: logger, servers: servers}, nil
}

// Labels returns the union of every connection's labels, sorted
func Labels(connections []Connection) []string {
	set := make(map[string]struct{})
	for _, conn := range connections {
		for _, label := range conn.Labels {
			set[label] = struct{}{}
		}
	}

	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Labels returns the union of the server's connection labels
func (s *Server) Labels() []string {
	return Labels(s.config.Connections)
}

// Listen binds every connection. Either all connections are bound or none.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.listeners) > 0 {
		return fmt.Errorf("server already listening")
	}

	listeners := make([]net.Listener, 0, len(s.servers))
	for _, srv := range s.servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return fmt.Errorf("failed to create listener on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}
	s.listeners = listeners
	return nil
}

// Serve serves every bound connection until one fails or all are shut down.
// Listen is called first if it has not been.
func (s *Server) Serve() error {
	if !s.bound() {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, len(s.servers))
	for i, srv := range s.servers {
		srv, ln, conn := srv, s.listeners[i], s.config.Connections[i]
		s.logger.Info("listening",
			zap.String("address", ln.Addr().String()),
			zap.Strings("labels", conn.Labels),
		)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", conn.Address, err)
				return
			}
			errCh <- nil
		}()
	}

	var first error
	for range s.servers {
		if err := <-errCh; err != nil && first == nil {
			first = err
			// One failing connection takes the others down with it
			go func() { _ = s.Close() }()
		}
	}
	return first
}

func (s *Server) bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners) > 0
}

// Shutdown gracefully shuts down every connection
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
		}
	}
	return errors.Join(errs...)
}

// Close immediately closes every connection
func (s *Server) Close() error {
	var errs []error
	for _, srv := range s.servers {
		if err := srv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addrs returns the bound addresses, or the configured ones before Listen
func (s *Server) Addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]string, 0, len(s.servers))
	if len(s.listeners) > 0 {
		for _, ln := range s.listeners {
			addrs = append(addrs, ln.Addr().String())
		}
		return addrs
	}
	for _, conn := range s.config.Connections {
		addrs = append(addrs, conn.Address)
	}
	return addrs
}
