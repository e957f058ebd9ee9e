package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	Port    string
	Backlog int
}

// Handler atende uma conexão aceita. Roda na sua própria goroutine e não deve fechar
// conn antes de retornar só por causa de ctx: o servidor fecha as conexões no shutdown.
type Handler func(ctx context.Context, id string, conn net.Conn)

// Server aceita conexões TCP e despacha cada uma para uma goroutine própria
type Server struct {
	cfg      Config
	log      *zap.Logger
	handler  Handler
	registry *Registry

	wg        sync.WaitGroup
	ready     chan struct{}
	readyOnce sync.Once
	addr      net.Addr
}

func New(cfg Config, handler Handler, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		registry: NewRegistry(),
		ready:    make(chan struct{}),
	}
}

// Run abre o listener com o backlog configurado e serve até ctx ser cancelado
func (s *Server) Run(ctx context.Context) error {
	ln, err := listen(s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		// libera quem espera em Addr; o endereço fica nil
		s.markReady(nil)
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve roda o loop de accept em ln. Quando ctx termina fecha o listener,
// fecha as conexões ainda abertas e espera todas as goroutines antes de retornar.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.markReady(ln.Addr())
	s.log.Info("accepting connections", zap.String("addr", ln.Addr().String()), zap.Int("backlog", s.cfg.Backlog))

	// o único papel do sinal é cancelar ctx; fechar o listener desbloqueia o Accept
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var err error
	var backoff time.Duration
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil {
				s.log.Debug("accept interrupted by shutdown", zap.Error(aerr))
				break
			}
			if errors.Is(aerr, net.ErrClosed) {
				err = aerr
				break
			}
			backoff = nextBackoff(backoff)
			s.log.Error("accept failed", zap.Error(aerr), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		id := uuid.NewString()
		s.registry.Add(id, conn)
		s.log.Info("connection accepted",
			zap.String("action", "accept_connections"),
			zap.String("session", id),
			zap.String("peer", conn.RemoteAddr().String()),
		)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.registry.Remove(id)
			s.handler(ctx, id, conn)
		}()
	}

	s.log.Debug("shutdown in progress", zap.Int("open_connections", s.registry.Len()))
	closed := s.registry.CloseAll()
	s.wg.Wait()
	s.log.Info("server stopped", zap.Int("closed_connections", closed))
	return err
}

func (s *Server) markReady(addr net.Addr) {
	s.readyOnce.Do(func() {
		s.addr = addr
		close(s.ready)
	})
}

// Addr bloqueia até o listener existir e devolve o endereço real (útil com porta 0).
// Devolve nil se Run falhou ao abrir o listener.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func (s *Server) ActiveConnections() int { return s.registry.Len() }

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}
