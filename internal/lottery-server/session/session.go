package session

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/coordinator"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/repo"
	"github.com/radieske/lottery-agency-poc/pkg/lottery"
	"github.com/radieske/lottery-agency-poc/pkg/protocol"
)

// State é o estado de uma sessão
type State int

const (
	Receiving State = iota
	AwaitingDraw
	SendingWinners
	Closed
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "receiving"
	case AwaitingDraw:
		return "awaiting_draw"
	case SendingWinners:
		return "sending_winners"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Lottery é o que a sessão precisa do coordinator
type Lottery interface {
	StoreBets(ctx context.Context, bets []lottery.Bet) error
	ReportFinished(ctx context.Context, agency int) error
	WinnersFor(ctx context.Context, agency int) ([]string, error)
}

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnBatch func(bets int)
	OnState func(State)
	OnError func(stage string)
}

// batchOutcome separa "chegou mais um batch" de "chegou o último", sem misturar com o caminho de erro
type batchOutcome int

const (
	moreBatches batchOutcome = iota
	lastBatch
)

// Session atende uma conexão de agência do começo ao fim.
// Pertence exclusivamente à goroutine que chama Run.
type Session struct {
	id      string
	conn    net.Conn
	proto   *protocol.Conn
	lottery Lottery
	log     *zap.Logger
	hooks   Hooks

	state  State
	agency int // aprendido das apostas, confirmado pela consulta
	bets   int
}

func New(id string, conn net.Conn, l Lottery, log *zap.Logger, hooks Hooks) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		proto:   protocol.NewConn(conn),
		lottery: l,
		log:     log.With(zap.String("session", id), zap.String("peer", conn.RemoteAddr().String())),
		hooks:   hooks,
		state:   Receiving,
	}
}

func (s *Session) State() State { return s.state }

// Run executa RECEIVING -> AWAITING_DRAW -> SENDING_WINNERS -> CLOSED.
// Qualquer erro fecha a conexão; a sessão nunca tenta de novo, o cliente reconecta.
// O erro devolvido é o que encerrou a sessão (nil quando terminou normalmente).
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() { s.close(err) }()

	s.setState(Receiving)
	for {
		outcome, err := s.receiveBatch(ctx)
		if err != nil {
			return err
		}
		if outcome == lastBatch {
			break
		}
	}

	s.setState(AwaitingDraw)
	// sem apostas a agência só se identifica pela consulta, que precisa vir antes do reporte
	queried := false
	if s.agency == 0 {
		if err := s.readQuery(); err != nil {
			return err
		}
		queried = true
	}
	if err := s.lottery.ReportFinished(ctx, s.agency); err != nil {
		return &stageError{stage: "draw", err: err}
	}

	s.setState(SendingWinners)
	if !queried {
		if err := s.readQuery(); err != nil {
			return err
		}
	}
	return s.sendWinners(ctx)
}

// receiveBatch lê um frame, decodifica as apostas e persiste o batch inteiro
func (s *Session) receiveBatch(ctx context.Context) (batchOutcome, error) {
	msg, err := s.proto.Receive()
	if err != nil {
		return 0, &stageError{stage: "receive", err: err}
	}

	bets, err := lottery.DecodeBatch(msg.Text())
	if err != nil {
		return 0, &stageError{stage: "decode", bytes: len(msg.Payload), err: fmt.Errorf("%w: %w", protocol.ErrMalformedPayload, err)}
	}
	for _, b := range bets {
		if s.agency == 0 {
			s.agency = b.Agency
			s.log = s.log.With(zap.Int("agency", b.Agency))
		}
		if b.Agency != s.agency {
			return 0, &stageError{stage: "decode", bytes: len(msg.Payload),
				err: fmt.Errorf("%w: bet for agency %d on agency %d connection", protocol.ErrMalformedPayload, b.Agency, s.agency)}
		}
	}

	if len(bets) > 0 {
		if err := s.lottery.StoreBets(ctx, bets); err != nil {
			return 0, &stageError{stage: "store", bytes: len(msg.Payload), err: err}
		}
	}
	s.bets += len(bets)
	if s.hooks.OnBatch != nil {
		s.hooks.OnBatch(len(bets))
	}

	s.log.Info("bets received",
		zap.String("action", "apuesta_recibida"),
		zap.Int("count", len(bets)),
		zap.Int("bytes", len(msg.Payload)),
		zap.Bool("last", msg.End),
	)

	if msg.End {
		return lastBatch, nil
	}
	return moreBatches, nil
}

// readQuery lê "WINNERS,<agency>" e fixa a agência da sessão.
// A flag do frame de consulta é ignorada.
func (s *Session) readQuery() error {
	msg, err := s.proto.Receive()
	if err != nil {
		return &stageError{stage: "query", err: err}
	}

	agency, err := lottery.DecodeWinnersQuery(msg.Text())
	if err != nil {
		return &stageError{stage: "query", bytes: len(msg.Payload), err: fmt.Errorf("%w: %w", protocol.ErrMalformedPayload, err)}
	}
	if s.agency != 0 && agency != s.agency {
		return &stageError{stage: "query", bytes: len(msg.Payload),
			err: fmt.Errorf("%w: winners of agency %d asked on agency %d connection", protocol.ErrMalformedPayload, agency, s.agency)}
	}
	if s.agency == 0 {
		s.agency = agency
		s.log = s.log.With(zap.Int("agency", agency))
	}
	return nil
}

// sendWinners responde os documentos da agência com a flag de fim
func (s *Session) sendWinners(ctx context.Context) error {
	winners, err := s.lottery.WinnersFor(ctx, s.agency)
	if err != nil {
		return &stageError{stage: "query", err: err}
	}

	payload := lottery.EncodeWinners(winners)
	if err := s.proto.Send(payload, true); err != nil {
		return &stageError{stage: "send", err: err}
	}

	s.log.Info("winners sent",
		zap.String("action", "send_winners"),
		zap.Int("winners", len(winners)),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

func (s *Session) setState(st State) {
	s.state = st
	if s.hooks.OnState != nil {
		s.hooks.OnState(st)
	}
}

func (s *Session) close(err error) {
	_ = s.conn.Close()
	s.setState(Closed)

	if err == nil {
		s.log.Info("session closed", zap.Int("bets", s.bets))
		return
	}

	stage, bytes := "unknown", 0
	var se *stageError
	if errors.As(err, &se) {
		stage, bytes = se.stage, se.bytes
	}
	var pe *protocol.Error
	if errors.As(err, &pe) {
		bytes = pe.Bytes
	}

	if s.hooks.OnError != nil {
		s.hooks.OnError(stage)
	}

	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("kind", Kind(err)),
		zap.Int("bytes", bytes),
		zap.Int("bets", s.bets),
		zap.Error(err),
	}
	if errors.Is(err, context.Canceled) {
		// shutdown em andamento: esperado
		s.log.Debug("session closed by shutdown", fields...)
		return
	}
	s.log.Error("session failed", fields...)
}

// Kind classifica o erro que encerrou uma sessão
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "shutdown"
	case errors.Is(err, protocol.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, protocol.ErrConnectionBroken):
		return "connection_broken"
	case errors.Is(err, repo.ErrStoreIO):
		return "store_io"
	case errors.Is(err, coordinator.ErrDrawCompleted):
		return "draw_completed"
	default:
		return "internal"
	}
}

type stageError struct {
	stage string
	bytes int
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }
