package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/repo"
	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

var (
	// ErrDrawCompleted é devolvido para apostas que chegam depois do sorteio
	ErrDrawCompleted = errors.New("draw already completed")
	// ErrUnknownAgency é devolvido para reportes sem id de agência, que não entram na contagem
	ErrUnknownAgency = errors.New("unknown agency")
)

// Draw é o resultado do sorteio, calculado uma única vez
type Draw struct {
	ID        string
	Winners   map[int][]string // agency -> documentos ganhadores, na ordem do store
	TotalBets int
	DrawnAt   time.Time
}

// Hooks permite observar o coordinator (métricas, publicação do resultado)
type Hooks struct {
	OnStored   func(bets int)     // batch persistido
	OnFinished func(finished int) // agência reportou fim do envio; chamado sob o lock
	OnDraw     func(Draw)         // sorteio concluído; chamado fora do lock, uma única vez
}

// Coordinator serializa as escritas no store e segura as consultas de ganhadores
// até que todas as agências tenham terminado de enviar apostas.
type Coordinator struct {
	log      *zap.Logger
	store    repo.Store
	isWinner lottery.Predicate
	required int
	hooks    Hooks

	// mu cobre store, finished e computed
	mu       sync.Mutex
	finished map[int]struct{}
	computed bool

	// drawn é fechado quando winners/drawErr estão prontos; depois disso ambos são read-only
	drawn    chan struct{}
	winners  map[int][]string
	drawErr  error
	drawInfo Draw
}

func New(log *zap.Logger, store repo.Store, isWinner lottery.Predicate, required int, hooks Hooks) *Coordinator {
	return &Coordinator{
		log:      log,
		store:    store,
		isWinner: isWinner,
		required: required,
		hooks:    hooks,
		finished: make(map[int]struct{}),
		drawn:    make(chan struct{}),
	}
}

// StoreBets persiste um batch sob o lock compartilhado, então batches de agências
// diferentes nunca se intercalam no meio de um registro
func (c *Coordinator) StoreBets(ctx context.Context, bets []lottery.Bet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.computed {
		return ErrDrawCompleted
	}
	if err := c.store.Append(ctx, bets); err != nil {
		return err
	}
	if c.hooks.OnStored != nil {
		c.hooks.OnStored(len(bets))
	}
	return nil
}

// ReportFinished registra que a agência terminou de enviar e bloqueia até o sorteio.
// Cada agência conta uma única vez, mesmo reconectando.
// Quem completa a contagem calcula o sorteio; ninguém mais dispara outro scan.
func (c *Coordinator) ReportFinished(ctx context.Context, agency int) error {
	if agency <= 0 {
		return fmt.Errorf("%w: %d", ErrUnknownAgency, agency)
	}

	c.mu.Lock()
	if _, dup := c.finished[agency]; dup {
		c.log.Warn("agency already reported finished", zap.Int("agency", agency))
	}
	c.finished[agency] = struct{}{}
	finished := len(c.finished)
	if c.hooks.OnFinished != nil {
		c.hooks.OnFinished(finished)
	}

	drawNow := !c.computed && finished >= c.required
	if drawNow {
		c.computed = true
		// o scan não pode ser interrompido pelo cancelamento de uma única sessão
		c.computeLocked(context.WithoutCancel(ctx))
		close(c.drawn)
	}
	c.mu.Unlock()

	c.log.Info("agency finished",
		zap.Int("agency", agency),
		zap.Int("finished", finished),
		zap.Int("required", c.required),
	)
	if drawNow && c.drawErr == nil && c.hooks.OnDraw != nil {
		c.hooks.OnDraw(c.drawInfo)
	}

	return c.wait(ctx)
}

// WinnersFor devolve os documentos ganhadores da agência. Bloqueia até o sorteio;
// depois disso é só uma consulta e sempre devolve o mesmo resultado.
func (c *Coordinator) WinnersFor(ctx context.Context, agency int) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	docs := c.winners[agency]
	out := make([]string, len(docs))
	copy(out, docs)
	return out, nil
}

// Finished retorna quantas agências já reportaram fim do envio
func (c *Coordinator) Finished() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.finished)
}

func (c *Coordinator) Required() int { return c.required }

// Drawn indica se o sorteio já foi calculado
func (c *Coordinator) Drawn() bool {
	select {
	case <-c.drawn:
		return true
	default:
		return false
	}
}

func (c *Coordinator) wait(ctx context.Context) error {
	select {
	case <-c.drawn:
		return c.drawErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// computeLocked faz o único scan completo do store e particiona os ganhadores por agência
func (c *Coordinator) computeLocked(ctx context.Context) {
	start := time.Now()

	bets, err := c.store.ScanAll(ctx)
	if err != nil {
		c.drawErr = fmt.Errorf("draw: %w", err)
		c.log.Error("draw failed", zap.Error(err))
		return
	}

	winners := make(map[int][]string)
	seen := make(map[int]map[string]struct{})
	for _, b := range bets {
		if _, ok := winners[b.Agency]; !ok {
			winners[b.Agency] = []string{}
			seen[b.Agency] = make(map[string]struct{})
		}
		if !c.isWinner(b) {
			continue
		}
		if _, dup := seen[b.Agency][b.Document]; dup {
			continue
		}
		seen[b.Agency][b.Document] = struct{}{}
		winners[b.Agency] = append(winners[b.Agency], b.Document)
	}

	c.winners = winners
	c.drawInfo = Draw{
		ID:        uuid.NewString(),
		Winners:   winners,
		TotalBets: len(bets),
		DrawnAt:   time.Now().UTC(),
	}

	c.log.Info("draw completed",
		zap.String("draw_id", c.drawInfo.ID),
		zap.Int("bets", len(bets)),
		zap.Int("agencies", len(winners)),
		zap.Duration("took", time.Since(start)),
	)
}
