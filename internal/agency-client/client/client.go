package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
	"github.com/radieske/lottery-agency-poc/pkg/protocol"
)

// Client envia as apostas de uma agência e consulta os ganhadores numa única conexão
type Client struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log.With(zap.Int("client_id", cfg.ID))}
}

// Run envia todos os batches de bets (o último com a flag de fim), pede os ganhadores
// e devolve os documentos. Cancelar ctx fecha a conexão e interrompe qualquer I/O pendente.
func (c *Client) Run(ctx context.Context, bets io.Reader) ([]string, error) {
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.ServerAddress)
	if err != nil {
		c.log.Error("connect failed", zap.String("action", "connect"), zap.Error(err))
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		c.log.Debug("closing connection", zap.String("action", "exit"))
		_ = conn.Close()
	})
	defer stop()

	p := protocol.NewConn(conn)
	if err := c.sendBets(p, bets); err != nil {
		return nil, c.ctxErr(ctx, err)
	}

	winners, err := c.queryWinners(p)
	if err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	c.log.Info("winners received", zap.String("action", "consulta_ganadores"), zap.Int("cant_ganadores", len(winners)))
	return winners, nil
}

func (c *Client) sendBets(p *protocol.Conn, bets io.Reader) error {
	b := NewBatcher(bets, c.cfg.ID, c.cfg.BatchMaxAmount, MaxBatchBytes)

	batch, payload, err := b.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	total := 0
	for {
		nextBatch, nextPayload, nerr := b.Next()
		if nerr != nil && !errors.Is(nerr, io.EOF) {
			return nerr
		}
		last := errors.Is(nerr, io.EOF)

		if err := p.Send(payload, last); err != nil {
			c.log.Error("batch send failed", zap.String("action", "apuesta_enviada"), zap.Int("cantidad", len(batch)), zap.Error(err))
			return err
		}
		total += len(batch)
		c.log.Debug("batch sent", zap.String("action", "apuesta_enviada"), zap.Int("cantidad", len(batch)), zap.Bool("last", last))

		if last {
			break
		}
		batch, payload = nextBatch, nextPayload
	}

	c.log.Info("all bets sent", zap.String("action", "apuestas_enviadas"), zap.Int("cantidad", total))
	return nil
}

// queryWinners manda "WINNERS,<id>" com a flag de fim e espera a resposta terminal
func (c *Client) queryWinners(p *protocol.Conn) ([]string, error) {
	if err := p.Send(lottery.EncodeWinnersQuery(c.cfg.ID), true); err != nil {
		return nil, err
	}
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if !msg.End {
		return nil, fmt.Errorf("%w: winners response without end flag", protocol.ErrMalformedPayload)
	}
	return lottery.DecodeWinners(msg.Text()), nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
